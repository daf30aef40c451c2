package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/feerecon/internal/core"
	"github.com/JonMunkholm/feerecon/internal/logging"
	"github.com/JonMunkholm/feerecon/internal/web/templates"
)

var (
	errFileTooLarge = errors.New("file too large")
	errNoFile       = errors.New("no file provided")
)

// multipartOverhead is the allowance for form fields and part headers on top
// of the file itself.
const multipartOverhead = 64 << 10

// SubmitResponse is returned by the asynchronous import endpoint.
type SubmitResponse struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

// handleSubmit registers an import job and returns its id immediately.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	file, opts, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	jobID, err := s.service.Submit(r.Context(), file, opts)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Location", "/api/imports/"+jobID)
	writeJSON(w, http.StatusAccepted, SubmitResponse{
		JobID:     jobID,
		StatusURL: "/api/imports/" + jobID,
	})
}

// handleProcessSync runs the import inside the request and returns the full
// result. Row-level failures still return 200; only fatal errors are mapped.
func (s *Server) handleProcessSync(w http.ResponseWriter, r *http.Request) {
	file, opts, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	result, err := s.service.Process(r.Context(), file, opts)
	if err != nil {
		var fatal *core.ImportResult
		if result.Status == core.ResultError {
			fatal = &result
		}
		s.renderImportError(w, r, err, statusFor(err), isHTMX(r), fatal)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleStatus returns a snapshot of a job.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.Status(chi.URLParam(r, "jobID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleStatusFragment renders the job card polled by the upload page.
// The fragment stops polling once the job is terminal.
func (s *Server) handleStatusFragment(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.Status(chi.URLParam(r, "jobID"))
	if err != nil {
		s.renderError(w, r, err, statusFor(err), true)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.JobStatusCard(job).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render job status", "error", err)
	}
}

// handleEvents streams job snapshots via Server-Sent Events until the job
// reaches a terminal state or the client disconnects. Snapshots are only
// sent when the job changed since the last event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.service.Status(jobID)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ticker := time.NewTicker(s.eventInterval)
	defer ticker.Stop()

	var lastUpdate time.Time
	for {
		if !job.UpdatedAt.Equal(lastUpdate) {
			lastUpdate = job.UpdatedAt
			if err := writeEvent(w, "progress", job); err != nil {
				return
			}
			flusher.Flush()
		}
		if job.Status.Terminal() {
			fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
			flusher.Flush()
			return
		}

		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}

		job, err = s.service.Status(jobID)
		if err != nil {
			// Swept while streaming.
			fmt.Fprintf(w, "event: expired\ndata: {}\n\n")
			flusher.Flush()
			return
		}
	}
}

func writeEvent(w io.Writer, event string, job core.ImportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", job.ProcessedRecords, event, data)
	return err
}

// handleQueueStatus reports limiter occupancy.
func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		core.LimiterStatus
		TrackedJobs int `json:"tracked_jobs"`
	}{s.service.Limiter().Status(), s.service.Jobs().Len()})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readUpload reads the multipart form into a FileInput and ImportOptions.
//
// Form fields:
//   - file: the spreadsheet (required)
//   - validateOnly: "true"/"1"/"on" for a dry run
//   - branchId: optional branch scope
//   - academicYear: fills rows without an academic year column
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (core.FileInput, core.ImportOptions, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.FileInput{}, core.ImportOptions{}, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, maxSize)
		}
		return core.FileInput{}, core.ImportOptions{}, fmt.Errorf("%w: %v", errNoFile, err)
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return core.FileInput{}, core.ImportOptions{}, errNoFile
	}
	defer f.Close()

	if header.Size > maxSize {
		return core.FileInput{}, core.ImportOptions{}, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, maxSize)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return core.FileInput{}, core.ImportOptions{}, fmt.Errorf("read upload: %w", err)
	}

	opts := core.ImportOptions{
		ValidateOnly: formBool(r.FormValue("validateOnly")),
		BranchID:     strings.TrimSpace(r.FormValue("branchId")),
		AcademicYear: strings.TrimSpace(r.FormValue("academicYear")),
	}
	if opts.AcademicYear == "" {
		opts.AcademicYear = s.cfg.Import.DefaultAcademicYear
	}

	logging.WithFields(r.Context(),
		"file", header.Filename,
		"bytes", len(data),
		"branch_id", opts.BranchID,
	).Debug("upload received")

	return core.FileInput{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, opts, nil
}

func formBool(v string) bool {
	if strings.EqualFold(v, "on") {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
