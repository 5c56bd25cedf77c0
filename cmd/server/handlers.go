package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/liamcoop/churn/internal/apperr"
	"github.com/liamcoop/churn/internal/logger"
	"github.com/liamcoop/churn/prediction"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.platform.Store().Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Error:  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Counters: logger.Snapshot(),
	})
}

// Upload handler: multipart form with file, user_email and column_mapping.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "File too large.")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondError(w, http.StatusBadRequest, "Missing file.")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid file: "+err.Error())
		return
	}
	defer file.Close()

	upload, err := s.platform.Upload(r.Context(), prediction.UploadRequest{
		Filename:      header.Filename,
		Content:       file,
		UserEmail:     r.FormValue("user_email"),
		ColumnMapping: r.FormValue("column_mapping"),
	})
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, UploadResponse{UploadID: upload.ID})
}

// Results handler
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	uploadID, err := strconv.ParseInt(chi.URLParam(r, "uploadId"), 10, 64)
	if err != nil || uploadID < 1 {
		respondError(w, http.StatusBadRequest, "Invalid upload id.")
		return
	}

	results, err := s.platform.Results(r.Context(), uploadID)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, results)
}

// Model metadata handler
func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	model := s.platform.Service().Model()
	respondJSON(w, http.StatusOK, ModelResponse{
		Kind:            model.Kind(),
		RequiredColumns: model.RequiredColumns(),
		Threshold:       model.Threshold(),
	})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes {"detail": detail}. detail is a message string or a
// structured diagnostic.
func respondError(w http.ResponseWriter, status int, detail any) {
	respondJSON(w, status, ErrorResponse{Detail: detail})
}

// respondAppError maps a platform error to its status and detail. A schema
// mismatch is returned as its full diagnostic object.
func (s *Server) respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	var mismatch *prediction.SchemaMismatch
	if errors.As(err, &mismatch) {
		respondError(w, http.StatusBadRequest, mismatch)
		return
	}

	se := apperr.From(err)
	status := apperr.HTTPStatus(se.Code)

	fields := map[string]interface{}{
		"code":       string(se.Code),
		"path":       r.URL.Path,
		"request_id": middlewareRequestID(r),
	}
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed", fields)
	} else {
		s.log.Debug("request rejected", fields)
	}

	detail := se.Message
	if se.Details != "" {
		detail += ": " + se.Details
	}
	respondError(w, status, detail)
}
