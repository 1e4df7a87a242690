package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/campusjobs/jobboard/internal/apperror"
	"github.com/campusjobs/jobboard/internal/auth"
	"github.com/campusjobs/jobboard/internal/metrics"
	"github.com/campusjobs/jobboard/internal/model"
	"github.com/campusjobs/jobboard/internal/repository"
	"github.com/campusjobs/jobboard/internal/storage"
)

type fixture struct {
	repo     *repository.Repository
	identity *IdentityService
	jobs     *JobService
	store    *storage.ResumeStore
	metrics  *metrics.InMemoryRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := storage.NewResumeStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewResumeStore failed: %v", err)
	}
	return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, resumes ResumeStore) *fixture {
	t.Helper()

	repo := repository.New()
	t.Cleanup(repo.Close)

	rec := metrics.NewInMemory()
	identity := NewIdentityService(repo, nil, rec)
	gate := auth.NewGate(identity, nil, rec)

	f := &fixture{
		repo:     repo,
		identity: identity,
		jobs:     NewJobService(repo, gate, resumes, nil, rec),
		metrics:  rec,
	}
	if s, ok := resumes.(*storage.ResumeStore); ok {
		f.store = s
	}
	return f
}

func (f *fixture) register(t *testing.T, name string, role model.Role) *model.User {
	t.Helper()

	user, err := f.identity.Register(context.Background(), RegisterInput{
		Name:     name,
		Password: name + "-pw",
		Role:     string(role),
	})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", name, err)
	}
	return user
}

func (f *fixture) createJob(t *testing.T, employer *model.User, title string) *model.Job {
	t.Helper()

	job, err := f.jobs.Create(context.Background(), auth.AsUser(employer.ID), model.JobFields{
		Title:   title,
		Company: "Campus Library",
		Status:  "open",
	})
	if err != nil {
		t.Fatalf("Create(%s) failed: %v", title, err)
	}
	return job
}

func resumeInput(name, fileName, content string) ApplyInput {
	return ApplyInput{
		ApplicantName: name,
		FileName:      fileName,
		Size:          int64(len(content)),
		Resume:        strings.NewReader(content),
	}
}

func readResume(t *testing.T, r *storage.Resume) string {
	t.Helper()
	defer r.Content.Close()

	data, err := io.ReadAll(r.Content)
	if err != nil {
		t.Fatalf("read resume failed: %v", err)
	}
	return string(data)
}

func assertKind(t *testing.T, err error, want apperror.Kind, wantReason string) {
	t.Helper()

	if got := apperror.KindOf(err); got != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, got, err)
	}
	if wantReason != "" {
		if got := apperror.ReasonOf(err); got != wantReason {
			t.Errorf("expected reason %q, got %q", wantReason, got)
		}
	}
}
