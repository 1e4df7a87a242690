package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/campusjobs/jobboard/internal/apperror"
	"github.com/campusjobs/jobboard/internal/auth"
	"github.com/campusjobs/jobboard/internal/handler/dto"
	"github.com/campusjobs/jobboard/internal/model"
	"github.com/campusjobs/jobboard/internal/service"
	"github.com/campusjobs/jobboard/internal/storage"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 1 << 20

// multipartOverhead allows for form boundaries and the name field on top of
// the resume itself.
const multipartOverhead = 64 << 10

// JobHandler handles HTTP requests for jobs, applications and resumes.
type JobHandler struct {
	svc           *service.JobService
	logger        *slog.Logger
	maxUploadSize int64
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(svc *service.JobService, logger *slog.Logger, maxUploadSize int64) *JobHandler {
	return &JobHandler{
		svc:           svc,
		logger:        logger,
		maxUploadSize: maxUploadSize,
	}
}

// List handles GET /api/jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.svc.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Create handles POST /api/jobs.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	job, err := h.svc.Create(r.Context(), auth.CallerFromContext(r.Context()), model.JobFields{
		Title:                   req.Title,
		Company:                 req.Company,
		Description:             req.Description,
		ApplicationInstructions: req.ApplicationInstructions,
		Status:                  req.Status,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

// UpdateStatus handles PUT /api/jobs/{id}/status.
func (h *JobHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeInvalidID(w, "job id")
		return
	}

	var req dto.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	job, err := h.svc.UpdateStatus(r.Context(), auth.CallerFromContext(r.Context()), id, req.Status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// Delete handles DELETE /api/jobs/{id}.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeInvalidID(w, "job id")
		return
	}

	if err := h.svc.Delete(r.Context(), auth.CallerFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListByEmployer handles GET /api/jobs/employer/{employerId}.
func (h *JobHandler) ListByEmployer(w http.ResponseWriter, r *http.Request) {
	employerID, ok := idParam(r, "employerId")
	if !ok {
		writeInvalidID(w, "employer id")
		return
	}

	jobs, err := h.svc.ListByEmployer(r.Context(), auth.CallerFromContext(r.Context()), employerID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

// Apply handles POST /api/jobs/{id}/apply.
// The body is multipart with a "name" field and a "resume" file.
// A missing or unreadable part is passed on as empty input so authorization
// failures are still reported ahead of validation failures. Only an oversize
// body is rejected here.
func (h *JobHandler) Apply(w http.ResponseWriter, r *http.Request) {
	jobID, ok := idParam(r, "id")
	if !ok {
		writeInvalidID(w, "job id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	var input service.ApplyInput
	parseErr := r.ParseMultipartForm(multipartMemory)
	var tooLarge *http.MaxBytesError
	switch {
	case parseErr == nil:
		defer r.MultipartForm.RemoveAll()
		input.ApplicantName = r.FormValue("name")

		file, header, err := r.FormFile("resume")
		if err == nil {
			defer file.Close()
			if header.Size > h.maxUploadSize {
				writeError(w, http.StatusBadRequest, string(apperror.KindInvalidInput), "resume exceeds maximum upload size")
				return
			}
			input.FileName = header.Filename
			input.Size = header.Size
			input.Resume = file
		} else if !errors.Is(err, http.ErrMissingFile) {
			h.logger.Warn("resume part unreadable", slog.String("error", err.Error()))
		}
	case errors.As(parseErr, &tooLarge):
		writeError(w, http.StatusBadRequest, string(apperror.KindInvalidInput), "resume exceeds maximum upload size")
		return
	case errors.Is(parseErr, http.ErrNotMultipart):
	default:
		h.logger.Debug("unreadable multipart body", slog.String("error", parseErr.Error()))
	}

	app, err := h.svc.Apply(r.Context(), auth.CallerFromContext(r.Context()), jobID, input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, app)
}

// Applicants handles GET /api/jobs/{id}/applicants.
func (h *JobHandler) Applicants(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeInvalidID(w, "job id")
		return
	}

	applicants, err := h.svc.ListApplicants(r.Context(), auth.CallerFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, applicants)
}

// Resume handles GET /api/jobs/resumes/{filename}.
// The file is served as an attachment under its stored name.
func (h *JobHandler) Resume(w http.ResponseWriter, r *http.Request) {
	// chi routes on RawPath when it is set, so the param arrives still escaped.
	name := chi.URLParam(r, "filename")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			writeError(w, http.StatusNotFound, string(apperror.KindNotFound), storage.ReasonResumeNotFound)
			return
		}
		name = unescaped
	}

	resume, err := h.svc.GetResume(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer resume.Content.Close()

	w.Header().Set("Content-Type", resume.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": resume.Name,
	}))
	http.ServeContent(w, r, resume.Name, resume.ModTime, resume.Content)
}
