// Package repository provides the in-memory data access layer.
// All state lives in process memory and is lost on restart.
package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/campusjobs/jobboard/internal/model"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("repository closed")

// Repository holds users, jobs and their applications.
// Maps are guarded by per-collection RWMutexes; ids come from atomic counters.
type Repository struct {
	usersMu    sync.RWMutex
	users      map[int64]*model.User
	usersByKey map[string]int64
	userSeq    atomic.Int64

	jobsMu sync.RWMutex
	jobs   map[int64]*model.Job
	jobSeq atomic.Int64
	appSeq atomic.Int64

	closed atomic.Bool
}

// New creates an empty Repository.
func New() *Repository {
	return &Repository{
		users:      make(map[int64]*model.User),
		usersByKey: make(map[string]int64),
		jobs:       make(map[int64]*model.Job),
	}
}

// Ping reports whether the repository is usable.
func (r *Repository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close marks the repository unusable. Stored data is dropped.
func (r *Repository) Close() {
	if r.closed.Swap(true) {
		return
	}

	r.usersMu.Lock()
	r.users = make(map[int64]*model.User)
	r.usersByKey = make(map[string]int64)
	r.usersMu.Unlock()

	r.jobsMu.Lock()
	r.jobs = make(map[int64]*model.Job)
	r.jobsMu.Unlock()
}
