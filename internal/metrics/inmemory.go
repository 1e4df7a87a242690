package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Login outcomes accepted by IncLogin.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Registrations         uint64
	LoginsSucceeded       uint64
	LoginsFailed          uint64
	AuthFailures          map[string]uint64
	JobsCreated           uint64
	JobsUpdated           uint64
	JobsDeleted           uint64
	ApplicationsSubmitted uint64
	ResumeBytesStored     int64
	ResumeStoreCount      uint64
	ResumeStoreTotalNs    int64
}

// AuthFailureKinds returns the recorded failure kinds in sorted order.
func (s Snapshot) AuthFailureKinds() []string {
	kinds := make([]string, 0, len(s.AuthFailures))
	for k := range s.AuthFailures {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint and tests.
type InMemoryRecorder struct {
	registrations         uint64
	loginsSucceeded       uint64
	loginsFailed          uint64
	jobsCreated           uint64
	jobsUpdated           uint64
	jobsDeleted           uint64
	applicationsSubmitted uint64
	resumeBytes           int64
	resumeStoreCount      uint64
	resumeStoreTotalNs    int64

	authMu       sync.Mutex
	authFailures map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{authFailures: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.authMu.Lock()
	failures := make(map[string]uint64, len(m.authFailures))
	for k, v := range m.authFailures {
		failures[k] = v
	}
	m.authMu.Unlock()

	return Snapshot{
		Registrations:         atomic.LoadUint64(&m.registrations),
		LoginsSucceeded:       atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:          atomic.LoadUint64(&m.loginsFailed),
		AuthFailures:          failures,
		JobsCreated:           atomic.LoadUint64(&m.jobsCreated),
		JobsUpdated:           atomic.LoadUint64(&m.jobsUpdated),
		JobsDeleted:           atomic.LoadUint64(&m.jobsDeleted),
		ApplicationsSubmitted: atomic.LoadUint64(&m.applicationsSubmitted),
		ResumeBytesStored:     atomic.LoadInt64(&m.resumeBytes),
		ResumeStoreCount:      atomic.LoadUint64(&m.resumeStoreCount),
		ResumeStoreTotalNs:    atomic.LoadInt64(&m.resumeStoreTotalNs),
	}
}

// IncRegistration increments the registration counter.
func (m *InMemoryRecorder) IncRegistration() {
	atomic.AddUint64(&m.registrations, 1)
}

// IncLogin increments the login counter for the given outcome.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == LoginSuccess {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncAuthFailure increments the authorization failure counter for kind.
func (m *InMemoryRecorder) IncAuthFailure(kind string) {
	m.authMu.Lock()
	m.authFailures[kind]++
	m.authMu.Unlock()
}

// IncJobCreated increments job created counter.
func (m *InMemoryRecorder) IncJobCreated() {
	atomic.AddUint64(&m.jobsCreated, 1)
}

// IncJobUpdated increments job updated counter.
func (m *InMemoryRecorder) IncJobUpdated() {
	atomic.AddUint64(&m.jobsUpdated, 1)
}

// IncJobDeleted increments job deleted counter.
func (m *InMemoryRecorder) IncJobDeleted() {
	atomic.AddUint64(&m.jobsDeleted, 1)
}

// IncApplicationSubmitted increments the application counter.
func (m *InMemoryRecorder) IncApplicationSubmitted() {
	atomic.AddUint64(&m.applicationsSubmitted, 1)
}

// AddResumeBytes adds n to the stored resume byte total.
func (m *InMemoryRecorder) AddResumeBytes(n int64) {
	atomic.AddInt64(&m.resumeBytes, n)
}

// ObserveResumeStoreDuration records how long a resume write took.
func (m *InMemoryRecorder) ObserveResumeStoreDuration(duration time.Duration) {
	atomic.AddUint64(&m.resumeStoreCount, 1)
	atomic.AddInt64(&m.resumeStoreTotalNs, duration.Nanoseconds())
}
