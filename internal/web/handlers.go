package web

import (
	"errors"
	"net/http"
	"strconv"

	"pledgeboard/internal/ingest"
	"pledgeboard/internal/logging"
	"pledgeboard/internal/pledge"
)

// uploadResponse is the JSON body returned for a completed run.
type uploadResponse struct {
	Message string            `json:"message"`
	Report  *ingest.RunReport `json:"report"`
}

// handleUpload ingests an uploaded pledge file and returns the run
// report. Structural input problems map to 400, store outages to 502.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.acquire(r.Context()); err != nil {
		if errors.Is(err, ErrTooManyUploads) {
			writeError(w, http.StatusTooManyRequests, err.Error())
		} else {
			writeError(w, http.StatusServiceUnavailable, err.Error())
		}
		return
	}
	defer s.limiter.release()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	logger := logging.WithFields(r.Context(), "filename", header.Filename)

	report, err := s.engine.Run(r.Context(), header.Filename, file)
	if err != nil {
		logger.Warn("upload failed", "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, ingest.ErrNoHeader) ||
			errors.Is(err, ingest.ErrUnsupportedFormat) ||
			errors.Is(err, ingest.ErrBadFile) ||
			errors.Is(err, ingest.ErrMissingColumns) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	// The upload log is a collaborator concern; a failure to persist
	// it must not fail a run that already committed rows.
	log := &pledge.UploadLog{
		Filename:       header.Filename,
		TotalRecords:   report.TotalRowsSeen,
		NewRecords:     report.CreatedCount,
		UpdatedRecords: report.UpdatedCount,
		Errors:         report.ErrorsText(),
	}
	if err := s.store.InsertUploadLog(r.Context(), log); err != nil {
		logger.Error("persist upload log failed", "error", err)
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message: report.Message(),
		Report:  report,
	})
}

// handleListPledges returns pledge records, optionally filtered by a
// search term against name or mobile number.
func (s *Server) handleListPledges(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	limit := queryInt(r, "limit", s.cfg.Upload.ListPageSize)
	offset := queryInt(r, "offset", 0)

	records, err := s.store.List(r.Context(), search, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("list pledges failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pledges")
		return
	}
	if records == nil {
		records = []pledge.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pledges": records})
}

// handleListUploadLogs returns the persisted run reports, newest first.
func (s *Server) handleListUploadLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.ListUploadLogs(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("list upload logs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list upload logs")
		return
	}
	if logs == nil {
		logs = []pledge.UploadLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": logs})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
