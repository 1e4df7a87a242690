package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/campusjobs/jobboard/internal/apperror"
	"github.com/campusjobs/jobboard/internal/auth"
	"github.com/campusjobs/jobboard/internal/metrics"
	"github.com/campusjobs/jobboard/internal/model"
	"github.com/campusjobs/jobboard/internal/repository"
	"github.com/campusjobs/jobboard/internal/storage"
)

// Reasons reported by the job service.
const (
	ReasonJobNotFound        = "job not found"
	ReasonStatusMissing      = "status not provided"
	ReasonApplicationInvalid = "applicant name and resume file are required"

	ReasonCreateForbidden     = "only employers can create jobs"
	ReasonUpdateForbidden     = "only the job owner can update status"
	ReasonDeleteForbidden     = "only the job owner can delete this job"
	ReasonListForbidden       = "you can only view your own job listings"
	ReasonApplyForbidden      = "only students can apply to jobs"
	ReasonApplicantsForbidden = "you can only view applicants for your own jobs"
)

// ResumeStore persists and serves uploaded resumes.
type ResumeStore interface {
	Store(ctx context.Context, originalName string, content io.Reader) (string, error)
	Retrieve(ctx context.Context, storedName string) (*storage.Resume, error)
}

// ApplyInput defines input for applying to a job.
type ApplyInput struct {
	ApplicantName string `validate:"required"`
	FileName      string
	Size          int64 `validate:"gt=0"`
	Resume        io.Reader
}

// JobService handles the job registry and its authorization rules.
type JobService struct {
	repo    *repository.Repository
	gate    *auth.Gate
	resumes ResumeStore
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewJobService creates a new JobService.
func NewJobService(repo *repository.Repository, gate *auth.Gate, resumes ResumeStore, logger *slog.Logger, recorder metrics.Recorder) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &JobService{
		repo:    repo,
		gate:    gate,
		resumes: resumes,
		logger:  logger.With("component", "service.jobs"),
		metrics: recorder,
	}
}

// Create posts a job owned by the calling employer.
// Any id, owner, timestamp or applicants in fields are ignored.
func (s *JobService) Create(ctx context.Context, caller auth.Caller, fields model.JobFields) (*model.Job, error) {
	user, err := s.gate.Authorize(ctx, caller, auth.Requirement{
		Role:   model.RoleEmployer,
		Reason: ReasonCreateForbidden,
	})
	if err != nil {
		return nil, err
	}

	job := &model.Job{
		Title:                   fields.Title,
		Company:                 fields.Company,
		Description:             fields.Description,
		ApplicationInstructions: fields.ApplicationInstructions,
		Status:                  fields.Status,
		DatePosted:              time.Now().UTC(),
		EmployerID:              user.ID,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.metrics.IncJobCreated()
	s.logger.Info("job created",
		slog.Int64("job_id", job.ID),
		slog.Int64("employer_id", user.ID),
	)

	return job, nil
}

// UpdateStatus replaces the status of a job. Only its owner may do so.
func (s *JobService) UpdateStatus(ctx context.Context, caller auth.Caller, jobID int64, status string) (*model.Job, error) {
	if _, err := s.ownedJob(ctx, caller, jobID, ReasonUpdateForbidden); err != nil {
		return nil, err
	}

	if trim(status) == "" {
		return nil, apperror.InvalidInput(ReasonStatusMissing)
	}

	job, err := s.repo.UpdateJobStatus(ctx, jobID, status)
	if err != nil {
		return nil, s.jobError("update job status", err)
	}

	s.metrics.IncJobUpdated()
	return job, nil
}

// Delete removes a job and its applications. Only its owner may do so.
// Stored resume files are left in place.
func (s *JobService) Delete(ctx context.Context, caller auth.Caller, jobID int64) error {
	if _, err := s.ownedJob(ctx, caller, jobID, ReasonDeleteForbidden); err != nil {
		return err
	}

	if err := s.repo.DeleteJob(ctx, jobID); err != nil {
		return s.jobError("delete job", err)
	}

	s.metrics.IncJobDeleted()
	s.logger.Info("job deleted", slog.Int64("job_id", jobID))
	return nil
}

// ListAll returns every current job. No authorization is required.
func (s *JobService) ListAll(ctx context.Context) ([]*model.Job, error) {
	jobs, err := s.repo.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// ListByEmployer returns the jobs of employerID. Employers may only list their own.
func (s *JobService) ListByEmployer(ctx context.Context, caller auth.Caller, employerID int64) ([]*model.Job, error) {
	_, err := s.gate.Authorize(ctx, caller, auth.Requirement{
		Role:    model.RoleEmployer,
		OwnerID: employerID,
		Reason:  ReasonListForbidden,
	})
	if err != nil {
		return nil, err
	}

	jobs, err := s.repo.ListJobsByEmployer(ctx, employerID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by employer: %w", err)
	}
	return jobs, nil
}

// Apply stores the resume and appends an application to the job.
// No application is recorded if the resume cannot be stored.
func (s *JobService) Apply(ctx context.Context, caller auth.Caller, jobID int64, input ApplyInput) (*model.Application, error) {
	user, err := s.gate.Authorize(ctx, caller, auth.Requirement{
		Role:   model.RoleStudent,
		Reason: ReasonApplyForbidden,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetJobByID(ctx, jobID); err != nil {
		return nil, s.jobError("get job", err)
	}

	input.ApplicantName = trim(input.ApplicantName)
	if err := validate.Struct(input); err != nil || input.Resume == nil {
		return nil, apperror.Wrap(apperror.KindInvalidInput, ReasonApplicationInvalid, err)
	}

	start := time.Now()
	counter := &countingReader{r: input.Resume}
	storedName, err := s.resumes.Store(ctx, input.FileName, counter)
	if err != nil {
		s.logger.Error("resume store failed",
			slog.Int64("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	s.metrics.ObserveResumeStoreDuration(time.Since(start))
	s.metrics.AddResumeBytes(counter.n)

	app := &model.Application{
		Name:           input.ApplicantName,
		ResumeFileName: storedName,
		Status:         model.ApplicationStatusSubmitted,
		DateApplied:    time.Now().UTC(),
	}

	if err := s.repo.AddApplication(ctx, jobID, app); err != nil {
		// The job was deleted after the file was written; the file stays orphaned.
		s.logger.Warn("application dropped",
			slog.Int64("job_id", jobID),
			slog.String("resume", storedName),
		)
		return nil, s.jobError("add application", err)
	}

	s.metrics.IncApplicationSubmitted()
	s.logger.Info("application submitted",
		slog.Int64("job_id", jobID),
		slog.Int64("application_id", app.ID),
		slog.Int64("student_id", user.ID),
	)

	return app, nil
}

// ListApplicants returns the name and resume of each applicant, in submission order.
// Only the job owner may view them.
func (s *JobService) ListApplicants(ctx context.Context, caller auth.Caller, jobID int64) ([]model.Applicant, error) {
	job, err := s.ownedJob(ctx, caller, jobID, ReasonApplicantsForbidden)
	if err != nil {
		return nil, err
	}

	applicants := make([]model.Applicant, 0, len(job.Applicants))
	for _, app := range job.Applicants {
		applicants = append(applicants, model.Applicant{
			Name:           app.Name,
			ResumeFileName: app.ResumeFileName,
		})
	}
	return applicants, nil
}

// GetResume opens a stored resume by name. Anyone holding the name may read it.
func (s *JobService) GetResume(ctx context.Context, storedName string) (*storage.Resume, error) {
	return s.resumes.Retrieve(ctx, storedName)
}

// ownedJob authenticates the caller, loads the job, then requires the caller
// to be its employer.
func (s *JobService) ownedJob(ctx context.Context, caller auth.Caller, jobID int64, reason string) (*model.Job, error) {
	user, err := s.gate.Authenticate(ctx, caller)
	if err != nil {
		return nil, err
	}

	job, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, s.jobError("get job", err)
	}

	if err := s.gate.Check(user, auth.Requirement{
		Role:    model.RoleEmployer,
		OwnerID: job.EmployerID,
		Reason:  reason,
	}); err != nil {
		return nil, err
	}

	return job, nil
}

// jobError maps repository errors to caller-facing errors.
func (s *JobService) jobError(op string, err error) error {
	if errors.Is(err, repository.ErrJobNotFound) {
		return apperror.NotFound(ReasonJobNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// countingReader counts bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
