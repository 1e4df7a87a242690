package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/campusjobs/jobboard/internal/model"
)

// Common errors for job repository operations.
var (
	ErrJobNotFound = errors.New("job not found")
)

// CreateJob assigns the next job ID and stores a copy of the job.
func (r *Repository) CreateJob(ctx context.Context, job *model.Job) error {
	if r.closed.Load() {
		return ErrClosed
	}

	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()

	if job.Applicants == nil {
		job.Applicants = []*model.Application{}
	}
	job.ID = r.jobSeq.Add(1)
	r.jobs[job.ID] = job.Clone()

	return nil
}

// GetJobByID retrieves a snapshot of a job by its ID.
func (r *Repository) GetJobByID(ctx context.Context, id int64) (*model.Job, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	r.jobsMu.RLock()
	defer r.jobsMu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}

	return job.Clone(), nil
}

// UpdateJobStatus sets the status of a job and returns the updated snapshot.
func (r *Repository) UpdateJobStatus(ctx context.Context, id int64, status string) (*model.Job, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}

	job.Status = status
	return job.Clone(), nil
}

// DeleteJob removes a job together with its applications.
func (r *Repository) DeleteJob(ctx context.Context, id int64) error {
	if r.closed.Load() {
		return ErrClosed
	}

	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return ErrJobNotFound
	}

	delete(r.jobs, id)
	return nil
}

// ListJobs returns snapshots of all jobs ordered by ID.
func (r *Repository) ListJobs(ctx context.Context) ([]*model.Job, error) {
	return r.listJobs(func(*model.Job) bool { return true })
}

// ListJobsByEmployer returns snapshots of the employer's jobs ordered by ID.
func (r *Repository) ListJobsByEmployer(ctx context.Context, employerID int64) ([]*model.Job, error) {
	return r.listJobs(func(j *model.Job) bool { return j.EmployerID == employerID })
}

// AddApplication appends an application to a job.
// The application ID and job ID are assigned here, while the job is locked,
// so an application is never attached to a job that has been deleted.
func (r *Repository) AddApplication(ctx context.Context, jobID int64, app *model.Application) error {
	if r.closed.Load() {
		return ErrClosed
	}

	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}

	app.ID = r.appSeq.Add(1)
	app.JobID = jobID
	stored := *app
	job.Applicants = append(job.Applicants, &stored)

	return nil
}

func (r *Repository) listJobs(keep func(*model.Job) bool) ([]*model.Job, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	r.jobsMu.RLock()
	result := make([]*model.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if keep(job) {
			result = append(result, job.Clone())
		}
	}
	r.jobsMu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
