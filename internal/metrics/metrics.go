// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the job board.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Identity metrics
	IncRegistration()
	IncLogin(status string) // status: "success" or "failure"

	// Authorization metrics
	IncAuthFailure(kind string) // kind: apperror kind code

	// Job registry metrics
	IncJobCreated()
	IncJobUpdated()
	IncJobDeleted()
	IncApplicationSubmitted()

	// Resume store metrics
	AddResumeBytes(n int64)
	ObserveResumeStoreDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
