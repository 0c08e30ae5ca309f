package http

import (
	"errors"
	"net/http"

	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/couchcryptid/location-import-service/internal/jobs"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// uploadField is the multipart form field carrying the CSV file.
const uploadField = "csv_file"

type jobInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FileField   string `json:"file_field"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func handleJobInfo(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, jobInfo{
		Name:        domain.ImportJobName,
		Description: domain.ImportJobDescription,
		FileField:   uploadField,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
		case errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "missing "+uploadField+" file")
		default:
			writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		}
		return
	}
	defer func() { _ = file.Close() }()

	job, err := s.jobs.Submit(r.Context(), header.Filename, file)
	switch {
	case errors.Is(err, jobs.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.logger.Error("submit import job", "file_name", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "could not queue import job")
		return
	}

	w.Header().Set("Location", "/api/jobs/"+job.ID)
	sharedobs.WriteJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobLogs(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	entries, err := s.store.ListJobLogs(r.Context(), job.ID)
	if err != nil {
		s.logger.Error("list job logs", "job_id", job.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load job logs")
		return
	}
	if entries == nil {
		entries = []domain.JobLogEntry{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, entries)
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	locs, err := s.store.ListLocations(r.Context(), domain.LocationFilter{
		LocationType: q.Get("type"),
		ParentID:     q.Get("parent"),
	})
	if err != nil {
		s.logger.Error("list locations", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list locations")
		return
	}
	if locs == nil {
		locs = []domain.Location{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, locs)
}

func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) (domain.JobResult, bool) {
	id := r.PathValue("id")
	job, err := s.store.GetJobResult(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "job "+id+" not found")
		return domain.JobResult{}, false
	case err != nil:
		s.logger.Error("get job result", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load job")
		return domain.JobResult{}, false
	}
	return job, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, errorResponse{Error: msg})
}
