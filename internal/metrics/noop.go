package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncRegistration()                                  {}
func (n *NoopRecorder) IncLogin(status string)                            {}
func (n *NoopRecorder) IncAuthFailure(kind string)                        {}
func (n *NoopRecorder) IncJobCreated()                                    {}
func (n *NoopRecorder) IncJobUpdated()                                    {}
func (n *NoopRecorder) IncJobDeleted()                                    {}
func (n *NoopRecorder) IncApplicationSubmitted()                          {}
func (n *NoopRecorder) AddResumeBytes(bytes int64)                        {}
func (n *NoopRecorder) ObserveResumeStoreDuration(duration time.Duration) {}
