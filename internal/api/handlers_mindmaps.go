package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chriscarrollsmith/mindmap-generator/internal/loader"
	"github.com/chriscarrollsmith/mindmap-generator/internal/pipeline"
	"github.com/chriscarrollsmith/mindmap-generator/internal/render"
)

const formOverhead = 1 << 20

type textRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// handleCreate accepts a multipart "file" upload or a JSON body with raw
// text and queues a job for it.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes + formOverhead
	if r.ContentLength > limit {
		jsonError(w, fmt.Sprintf("request body exceeds max size (%d bytes)", limit), http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		job *pipeline.Job
		err error
	)
	if mediaType == "multipart/form-data" {
		job, err = s.jobFromUpload(r)
	} else {
		job, err = s.jobFromJSON(r)
	}
	if err != nil {
		var he httpError
		if errors.As(err, &he) {
			jsonError(w, he.msg, he.code)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("job queued", "job_id", job.ID, "filename", job.Filename)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/mindmaps/%s", job.ID),
	})
}

type httpError struct {
	msg  string
	code int
}

func (e httpError) Error() string { return e.msg }

func (s *Server) jobFromUpload(r *http.Request) (*pipeline.Job, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, httpError{"request body too large", http.StatusRequestEntityTooLarge}
		}
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file is required: %w", err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !loader.IsSupported(filename) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, httpError{"failed to read file", http.StatusInternalServerError}
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, httpError{fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge}
	}

	job := pipeline.NewFileJob(filename, data)
	job.Title = strings.TrimSpace(r.FormValue("title"))
	return job, nil
}

func (s *Server) jobFromJSON(r *http.Request) (*pipeline.Job, error) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, httpError{"request body too large", http.StatusRequestEntityTooLarge}
		}
		return nil, fmt.Errorf("invalid json body: %w", err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("text is required")
	}
	return pipeline.NewTextJob(strings.TrimSpace(req.Title), req.Text), nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	format := render.Format(chi.URLParam(r, "format"))
	if format.Extension() == "" {
		jsonError(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
		return
	}
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	out, ok := job.Output(format)
	if !ok {
		snap := job.Snapshot()
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "mindmap not ready",
			"status": snap.Status,
			"phase":  snap.Phase,
		})
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	_, _ = io.WriteString(w, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
