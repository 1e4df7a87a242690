package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/campusjobs/jobboard/internal/auth"
	"github.com/campusjobs/jobboard/internal/cache"
	"github.com/campusjobs/jobboard/internal/handler"
	"github.com/campusjobs/jobboard/internal/handler/dto"
	"github.com/campusjobs/jobboard/internal/metrics"
	"github.com/campusjobs/jobboard/internal/model"
	"github.com/campusjobs/jobboard/internal/repository"
	"github.com/campusjobs/jobboard/internal/service"
	"github.com/campusjobs/jobboard/internal/storage"
	"github.com/campusjobs/jobboard/internal/testutil"
)

type testApp struct {
	router  http.Handler
	metrics *metrics.InMemoryRecorder
}

func newTestApp(t *testing.T, limiter cache.Limiter) *testApp {
	t.Helper()

	logger := testutil.DiscardLogger()
	repo := repository.New()
	t.Cleanup(repo.Close)

	resumes, err := storage.NewResumeStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewResumeStore failed: %v", err)
	}

	rec := metrics.NewInMemory()
	identity := service.NewIdentityService(repo, logger, rec)
	gate := auth.NewGate(identity, logger, rec)

	router := NewRouter(RouterConfig{
		Logger:             logger,
		Identity:           identity,
		Jobs:               service.NewJobService(repo, gate, resumes, logger, rec),
		Health:             handler.NewHealthHandler(repo, resumes, nil),
		Metrics:            rec,
		Limiter:            limiter,
		MaxRequestBodySize: 1 << 10,
		MaxUploadSize:      1 << 12,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		IsDevelopment:      true,
	})

	return &testApp{router: router, metrics: rec}
}

func (a *testApp) do(t *testing.T, method, path string, userID int64, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if userID != 0 {
		req.Header.Set("X-User-Id", strconv.FormatInt(userID, 10))
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) doJSON(t *testing.T, method, path string, userID int64, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}
	return a.do(t, method, path, userID, body, "application/json")
}

func (a *testApp) register(t *testing.T, name, role string) model.UserView {
	t.Helper()

	rec := a.doJSON(t, http.MethodPost, "/api/auth/register", 0, dto.RegisterRequest{
		Name: name, Password: name + "-pw", Role: role,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", name, rec.Code, rec.Body.String())
	}
	var view model.UserView
	decode(t, rec, &view)
	return view
}

func (a *testApp) createJob(t *testing.T, employerID int64, title string) model.Job {
	t.Helper()

	rec := a.doJSON(t, http.MethodPost, "/api/jobs", employerID, dto.CreateJobRequest{
		Title: title, Company: "Campus Library", Status: "open",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create job: status %d body %s", rec.Code, rec.Body.String())
	}
	var job model.Job
	decode(t, rec, &job)
	return job
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code, message string) {
	t.Helper()

	if rec.Code != status {
		t.Fatalf("expected status %d, got %d (body %s)", status, rec.Code, rec.Body.String())
	}
	var body dto.ErrorResponse
	decode(t, rec, &body)
	if body.Code != code {
		t.Errorf("expected code %s, got %s", code, body.Code)
	}
	if message != "" && body.Error != message {
		t.Errorf("expected error %q, got %q", message, body.Error)
	}
}

func TestRoutes_RegisterAndLogin(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.doJSON(t, http.MethodPost, "/api/auth/register", 0, dto.RegisterRequest{
		Name: "alice", Password: "s3cret", Role: "employer",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "s3cret") {
		t.Error("register response leaked the secret")
	}

	rec = app.doJSON(t, http.MethodPost, "/api/auth/register", 0, dto.RegisterRequest{
		Name: "ALICE", Password: "x", Role: "student",
	})
	assertError(t, rec, http.StatusConflict, "CONFLICT", "username already exists")

	rec = app.doJSON(t, http.MethodPost, "/api/auth/login", 0, dto.LoginRequest{Name: "alice", Password: "s3cret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view model.UserView
	decode(t, rec, &view)
	if view.Name != "alice" || view.Role != model.RoleEmployer || view.ID == 0 {
		t.Errorf("unexpected login view %+v", view)
	}

	rec = app.doJSON(t, http.MethodPost, "/api/auth/login", 0, dto.LoginRequest{Name: "alice", Password: "wrong"})
	assertError(t, rec, http.StatusUnauthorized, "UNAUTHENTICATED", service.ReasonIncorrectPassword)

	rec = app.doJSON(t, http.MethodPost, "/api/auth/login", 0, dto.LoginRequest{Name: "alice"})
	assertError(t, rec, http.StatusBadRequest, "INVALID_INPUT", service.ReasonCredentialsRequired)
}

func TestRoutes_InvalidJSON(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodPost, "/api/auth/register", 0, strings.NewReader("{not json"), "application/json")
	assertError(t, rec, http.StatusBadRequest, "INVALID_JSON", "")
}

func TestRoutes_JSONBodyTooLarge(t *testing.T) {
	app := newTestApp(t, nil)

	big := strings.Repeat("a", 4<<10)
	rec := app.doJSON(t, http.MethodPost, "/api/auth/register", 0, dto.RegisterRequest{
		Name: big, Password: "x", Role: "student",
	})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestRoutes_JobLifecycle(t *testing.T) {
	app := newTestApp(t, nil)

	alice := app.register(t, "alice", "employer")
	bob := app.register(t, "bob", "student")
	carol := app.register(t, "carol", "employer")

	job := app.createJob(t, alice.ID, "Library Assistant")
	if job.EmployerID != alice.ID || job.ID == 0 {
		t.Fatalf("unexpected job %+v", job)
	}
	jobPath := "/api/jobs/" + strconv.FormatInt(job.ID, 10)

	// Bob applies with a resume.
	body, contentType := testutil.MultipartResume(t, "Bob", "cv.pdf", []byte("%PDF-1.4 bob"))
	rec := app.do(t, http.MethodPost, jobPath+"/apply", bob.ID, body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("apply: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var app1 model.Application
	decode(t, rec, &app1)
	if app1.Status != model.ApplicationStatusSubmitted || !strings.HasSuffix(app1.ResumeFileName, "_cv.pdf") {
		t.Errorf("unexpected application %+v", app1)
	}

	// Only Alice sees applicants.
	rec = app.do(t, http.MethodGet, jobPath+"/applicants", carol.ID, nil, "")
	assertError(t, rec, http.StatusForbidden, "FORBIDDEN", service.ReasonApplicantsForbidden)

	rec = app.do(t, http.MethodGet, jobPath+"/applicants", alice.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("applicants: expected 200, got %d", rec.Code)
	}
	var applicants []model.Applicant
	decode(t, rec, &applicants)
	if len(applicants) != 1 || applicants[0].Name != "Bob" || applicants[0].ResumeFileName != app1.ResumeFileName {
		t.Fatalf("unexpected applicants %+v", applicants)
	}

	// Resume download as attachment.
	rec = app.do(t, http.MethodGet, "/api/jobs/resumes/"+app1.ResumeFileName, alice.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("resume: expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "%PDF-1.4 bob" {
		t.Errorf("unexpected resume bytes %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/pdf") {
		t.Errorf("expected application/pdf, got %s", ct)
	}
	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	if err != nil || disposition != "attachment" || params["filename"] != app1.ResumeFileName {
		t.Errorf("unexpected Content-Disposition %q", rec.Header().Get("Content-Disposition"))
	}

	// Status updates.
	rec = app.doJSON(t, http.MethodPut, jobPath+"/status", carol.ID, dto.UpdateStatusRequest{Status: "closed"})
	assertError(t, rec, http.StatusForbidden, "FORBIDDEN", service.ReasonUpdateForbidden)

	rec = app.doJSON(t, http.MethodPut, jobPath+"/status", alice.ID, dto.UpdateStatusRequest{Status: " "})
	assertError(t, rec, http.StatusBadRequest, "INVALID_INPUT", service.ReasonStatusMissing)

	rec = app.doJSON(t, http.MethodPut, jobPath+"/status", alice.ID, dto.UpdateStatusRequest{Status: "closed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status: expected 200, got %d", rec.Code)
	}
	var updated model.Job
	decode(t, rec, &updated)
	if updated.Status != "closed" {
		t.Errorf("expected closed, got %s", updated.Status)
	}

	// Listings.
	rec = app.do(t, http.MethodGet, "/api/jobs/employer/"+strconv.FormatInt(alice.ID, 10), carol.ID, nil, "")
	assertError(t, rec, http.StatusForbidden, "FORBIDDEN", service.ReasonListForbidden)

	rec = app.do(t, http.MethodGet, "/api/jobs/employer/"+strconv.FormatInt(alice.ID, 10), alice.ID, nil, "")
	var mine []model.Job
	decode(t, rec, &mine)
	if len(mine) != 1 || mine[0].ID != job.ID {
		t.Errorf("unexpected employer listing %+v", mine)
	}

	// Delete.
	rec = app.do(t, http.MethodDelete, jobPath, carol.ID, nil, "")
	assertError(t, rec, http.StatusForbidden, "FORBIDDEN", service.ReasonDeleteForbidden)

	rec = app.do(t, http.MethodDelete, jobPath, alice.ID, nil, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodGet, jobPath+"/applicants", alice.ID, nil, "")
	assertError(t, rec, http.StatusNotFound, "NOT_FOUND", service.ReasonJobNotFound)

	rec = app.do(t, http.MethodGet, "/api/jobs", 0, nil, "")
	var all []model.Job
	decode(t, rec, &all)
	if len(all) != 0 {
		t.Errorf("expected no jobs after delete, got %d", len(all))
	}

	// The resume outlives the job.
	rec = app.do(t, http.MethodGet, "/api/jobs/resumes/"+app1.ResumeFileName, 0, nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected resume to remain, got %d", rec.Code)
	}
}

func TestRoutes_CallerHeader(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name   string
		header string
		reason string
	}{
		{"missing", "", auth.ReasonMissingCaller},
		{"malformed", "abc", auth.ReasonMalformedCaller},
		{"unknown", "999", auth.ReasonUnknownCaller},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"title":"x"}`))
			req.Header.Set("Content-Type", "application/json")
			if tt.header != "" {
				req.Header.Set("X-User-Id", tt.header)
			}
			rec := httptest.NewRecorder()
			app.router.ServeHTTP(rec, req)

			assertError(t, rec, http.StatusUnauthorized, "UNAUTHENTICATED", tt.reason)
		})
	}
}

func TestRoutes_ApplyChecks(t *testing.T) {
	app := newTestApp(t, nil)

	alice := app.register(t, "alice", "employer")
	bob := app.register(t, "bob", "student")
	job := app.createJob(t, alice.ID, "Tutor")
	applyPath := "/api/jobs/" + strconv.FormatInt(job.ID, 10) + "/apply"

	t.Run("anonymous without file is unauthenticated", func(t *testing.T) {
		body, ct := testutil.MultipartResume(t, "Bob", "", nil)
		rec := app.do(t, http.MethodPost, applyPath, 0, body, ct)
		assertError(t, rec, http.StatusUnauthorized, "UNAUTHENTICATED", auth.ReasonMissingCaller)
	})

	t.Run("employer cannot apply", func(t *testing.T) {
		body, ct := testutil.MultipartResume(t, "Alice", "cv.pdf", []byte("x"))
		rec := app.do(t, http.MethodPost, applyPath, alice.ID, body, ct)
		assertError(t, rec, http.StatusForbidden, "FORBIDDEN", service.ReasonApplyForbidden)
	})

	t.Run("unknown job", func(t *testing.T) {
		body, ct := testutil.MultipartResume(t, "Bob", "cv.pdf", []byte("x"))
		rec := app.do(t, http.MethodPost, "/api/jobs/9999/apply", bob.ID, body, ct)
		assertError(t, rec, http.StatusNotFound, "NOT_FOUND", service.ReasonJobNotFound)
	})

	t.Run("missing file", func(t *testing.T) {
		body, ct := testutil.MultipartResume(t, "Bob", "", nil)
		rec := app.do(t, http.MethodPost, applyPath, bob.ID, body, ct)
		assertError(t, rec, http.StatusBadRequest, "INVALID_INPUT", service.ReasonApplicationInvalid)
	})

	t.Run("missing name", func(t *testing.T) {
		body, ct := testutil.MultipartResume(t, "", "cv.pdf", []byte("x"))
		rec := app.do(t, http.MethodPost, applyPath, bob.ID, body, ct)
		assertError(t, rec, http.StatusBadRequest, "INVALID_INPUT", service.ReasonApplicationInvalid)
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := app.doJSON(t, http.MethodPost, applyPath, bob.ID, map[string]string{"name": "Bob"})
		assertError(t, rec, http.StatusBadRequest, "INVALID_INPUT", service.ReasonApplicationInvalid)
	})

	t.Run("oversize upload", func(t *testing.T) {
		body, ct := testutil.MultipartResume(t, "Bob", "cv.pdf", bytes.Repeat([]byte("a"), 1<<20))
		rec := app.do(t, http.MethodPost, applyPath, bob.ID, body, ct)
		assertError(t, rec, http.StatusBadRequest, "INVALID_INPUT", "resume exceeds maximum upload size")
	})

	rec := app.do(t, http.MethodGet, "/api/jobs/"+strconv.FormatInt(job.ID, 10)+"/applicants", alice.ID, nil, "")
	var applicants []model.Applicant
	decode(t, rec, &applicants)
	if len(applicants) != 0 {
		t.Errorf("rejected applications were recorded: %+v", applicants)
	}
}

func TestRoutes_ResumeDownloadEscapedNames(t *testing.T) {
	app := newTestApp(t, nil)

	alice := app.register(t, "alice", "employer")
	bob := app.register(t, "bob", "student")
	job := app.createJob(t, alice.ID, "Tutor")
	applyPath := "/api/jobs/" + strconv.FormatInt(job.ID, 10) + "/apply"

	for _, fileName := range []string{
		"Smith, John.pdf",
		"cv;v2 & final.pdf",
		"cv+letter.pdf",
		"100%.pdf",
		"a" + strings.Repeat("é", 70) + ".pdf",
	} {
		t.Run(fileName, func(t *testing.T) {
			body, ct := testutil.MultipartResume(t, "Bob", fileName, []byte("%PDF-1.4 bob"))
			rec := app.do(t, http.MethodPost, applyPath, bob.ID, body, ct)
			if rec.Code != http.StatusCreated {
				t.Fatalf("apply: expected 201, got %d (%s)", rec.Code, rec.Body.String())
			}
			var submitted model.Application
			decode(t, rec, &submitted)

			rec = app.do(t, http.MethodGet, "/api/jobs/resumes/"+url.PathEscape(submitted.ResumeFileName), 0, nil, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("download %q: expected 200, got %d (%s)", submitted.ResumeFileName, rec.Code, rec.Body.String())
			}
			if rec.Body.String() != "%PDF-1.4 bob" {
				t.Errorf("unexpected resume bytes %q", rec.Body.String())
			}
		})
	}
}

func TestRoutes_ApplyMalformedMultipart(t *testing.T) {
	app := newTestApp(t, nil)

	alice := app.register(t, "alice", "employer")
	bob := app.register(t, "bob", "student")
	job := app.createJob(t, alice.ID, "Tutor")
	applyPath := "/api/jobs/" + strconv.FormatInt(job.ID, 10) + "/apply"
	const contentType = "multipart/form-data; boundary=xyz"

	rec := app.do(t, http.MethodPost, applyPath, 0, strings.NewReader("not a multipart body"), contentType)
	assertError(t, rec, http.StatusUnauthorized, "UNAUTHENTICATED", auth.ReasonMissingCaller)

	rec = app.do(t, http.MethodPost, applyPath, alice.ID, strings.NewReader("not a multipart body"), contentType)
	assertError(t, rec, http.StatusForbidden, "FORBIDDEN", service.ReasonApplyForbidden)

	rec = app.do(t, http.MethodPost, applyPath, bob.ID, strings.NewReader("not a multipart body"), contentType)
	assertError(t, rec, http.StatusBadRequest, "INVALID_INPUT", service.ReasonApplicationInvalid)
}

func TestRoutes_ResumeNotFound(t *testing.T) {
	app := newTestApp(t, nil)

	for _, name := range []string{"nope.pdf", "..%2F..%2Fetc%2Fpasswd"} {
		rec := app.do(t, http.MethodGet, "/api/jobs/resumes/"+name, 0, nil, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", name, rec.Code)
		}
	}
}

func TestRoutes_BadPathID(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodDelete, "/api/jobs/abc", 1, nil, "")
	assertError(t, rec, http.StatusBadRequest, "INVALID_INPUT", "job id must be an integer")

	rec = app.do(t, http.MethodGet, "/api/jobs/employer/abc", 1, nil, "")
	assertError(t, rec, http.StatusBadRequest, "INVALID_INPUT", "employer id must be an integer")
}

func TestRoutes_NotFoundAndMethodNotAllowed(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodGet, "/api/nothing", 0, nil, "")
	assertError(t, rec, http.StatusNotFound, "ROUTE_NOT_FOUND", "")

	rec = app.do(t, http.MethodPatch, "/api/jobs", 0, nil, "")
	assertError(t, rec, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "")
}

func TestRoutes_RateLimitedAuth(t *testing.T) {
	app := newTestApp(t, cache.NewLocalLimiter(1, 1))

	first := app.doJSON(t, http.MethodPost, "/api/auth/login", 0, dto.LoginRequest{Name: "x", Password: "y"})
	if first.Code == http.StatusTooManyRequests {
		t.Fatal("first request should not be limited")
	}

	second := app.doJSON(t, http.MethodPost, "/api/auth/login", 0, dto.LoginRequest{Name: "x", Password: "y"})
	assertError(t, second, http.StatusTooManyRequests, "RATE_LIMITED", "")
	if second.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// Other scopes are unaffected.
	rec := app.do(t, http.MethodGet, "/api/jobs", 0, nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for unlimited route, got %d", rec.Code)
	}
}

func TestRoutes_MetricsAndHealth(t *testing.T) {
	app := newTestApp(t, nil)

	alice := app.register(t, "alice", "employer")
	app.createJob(t, alice.ID, "Tutor")
	app.doJSON(t, http.MethodPost, "/api/jobs", 0, dto.CreateJobRequest{Title: "x"})

	rec := app.do(t, http.MethodGet, "/metrics", 0, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := rec.Body.String()
	for _, want := range []string{
		"jobboard_registrations_total 1",
		"jobboard_jobs_created_total 1",
		`jobboard_auth_failures_total{kind="UNAUTHENTICATED"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q:\n%s", want, out)
		}
	}

	rec = app.do(t, http.MethodGet, "/readyz", 0, nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz: expected 200, got %d", rec.Code)
	}
}

func TestRoutes_SecurityAndCORSHeaders(t *testing.T) {
	app := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("unexpected allow-origin %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id")
	}
}
