package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/liamcoop/churn/internal/apperr"
	"github.com/liamcoop/churn/internal/logger"
	"github.com/liamcoop/churn/internal/metrics"
	"github.com/liamcoop/churn/schema"
)

// DefaultUserEmail is used when an upload names no user.
const DefaultUserEmail = "demo@example.com"

// UploadRequest is one CSV submission.
type UploadRequest struct {
	Filename  string
	Content   io.Reader
	UserEmail string
	// ColumnMapping is the raw JSON object supplied by the client, or "".
	ColumnMapping string
}

// Platform wires the prediction service to file storage, persistence and
// the results cache.
type Platform struct {
	service *Service
	store   Store
	files   *FileStore
	cache   ResultsCache
	log     logger.Logger
}

// NewPlatform creates a platform. cache may be nil.
func NewPlatform(service *Service, store Store, files *FileStore, cache ResultsCache, log logger.Logger) *Platform {
	return &Platform{
		service: service,
		store:   store,
		files:   files,
		cache:   cache,
		log:     log,
	}
}

// Service returns the underlying prediction service.
func (p *Platform) Service() *Service {
	return p.service
}

// Store returns the persistence backend.
func (p *Platform) Store() Store {
	return p.store
}

// Upload validates and stores the file, scores it and persists the
// predictions. Nothing is persisted when validation, reconciliation or
// inference fails.
func (p *Platform) Upload(ctx context.Context, req UploadRequest) (*Upload, error) {
	upload, err := p.upload(ctx, req)
	switch {
	case err == nil:
		metrics.UploadsTotal.WithLabelValues(metrics.UploadSucceeded).Inc()
	case apperr.HTTPStatus(apperr.From(err).Code) < 500:
		metrics.UploadsTotal.WithLabelValues(metrics.UploadRejected).Inc()
	default:
		metrics.UploadsTotal.WithLabelValues(metrics.UploadFailed).Inc()
	}
	return upload, err
}

func (p *Platform) upload(ctx context.Context, req UploadRequest) (*Upload, error) {
	if req.Filename == "" {
		return nil, apperr.NewBadRequest(apperr.ErrCodeInvalidUpload, "Missing filename.", nil)
	}
	if !strings.HasSuffix(strings.ToLower(req.Filename), ".csv") {
		return nil, apperr.NewBadRequest(apperr.ErrCodeInvalidUpload, "Only CSV files are supported.", nil)
	}
	name := SafeName(req.Filename)

	path, err := p.files.Save(name, req.Content)
	if err != nil {
		p.log.WithError(err).Error("failed to save upload", map[string]interface{}{"filename": name})
		return nil, apperr.NewInternal(apperr.ErrCodeStorageFailed, "Failed to save file", err)
	}

	table, err := readStoredCSV(path)
	if err != nil {
		return nil, apperr.NewBadRequest(apperr.ErrCodeInvalidCSV, "Invalid CSV", err)
	}
	if table.NumRows() == 0 {
		return nil, apperr.NewBadRequest(apperr.ErrCodeInvalidCSV, "CSV contains no rows.", nil)
	}

	explicit, err := ParseColumnMapping(req.ColumnMapping)
	if err != nil {
		return nil, apperr.NewBadRequest(apperr.ErrCodeInvalidMapping, "Invalid column_mapping JSON", err)
	}

	rows, err := p.service.Predict(table, explicit)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(req.UserEmail)
	if email == "" {
		email = DefaultUserEmail
	}

	user, err := p.store.GetOrCreateUser(ctx, email)
	if err != nil {
		return nil, apperr.NewInternal(apperr.ErrCodeDatabaseFailed, "Failed to record user", err)
	}
	upload, err := p.store.CreateUpload(ctx, user.ID, name, rows)
	if err != nil {
		return nil, apperr.NewInternal(apperr.ErrCodeDatabaseFailed, "Failed to store predictions", err)
	}

	// Ids restart when the database is recreated while a shared cache
	// survives, so an entry for this id may already exist.
	if p.cache != nil {
		if err := p.cache.Invalidate(ctx, upload.ID); err != nil {
			p.log.WithError(err).Warn("results cache invalidation failed", map[string]interface{}{"upload_id": upload.ID})
		}
	}

	p.log.Info("upload scored", map[string]interface{}{
		"upload_id": upload.ID,
		"user_id":   user.ID,
		"filename":  name,
		"rows":      len(rows),
	})

	return upload, nil
}

// Results returns the predictions of an upload, served from the cache when
// possible. Cache failures are logged and fall back to the store.
func (p *Platform) Results(ctx context.Context, uploadID int64) (*Results, error) {
	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, uploadID)
		if err != nil {
			p.log.WithError(err).Warn("results cache read failed", map[string]interface{}{"upload_id": uploadID})
		} else if ok {
			return cached, nil
		}
	}

	if _, err := p.store.GetUpload(ctx, uploadID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NewNotFound(apperr.ErrCodeUploadNotFound, "Upload not found.")
		}
		return nil, apperr.NewInternal(apperr.ErrCodeDatabaseFailed, "Failed to get upload", err)
	}

	preds, err := p.store.ListPredictions(ctx, uploadID)
	if err != nil {
		return nil, apperr.NewInternal(apperr.ErrCodeDatabaseFailed, "Failed to list predictions", err)
	}
	results := &Results{UploadID: uploadID, Predictions: preds}

	if p.cache != nil {
		if err := p.cache.Set(ctx, results); err != nil {
			p.log.WithError(err).Warn("results cache write failed", map[string]interface{}{"upload_id": uploadID})
		}
	}

	return results, nil
}

// ParseColumnMapping decodes a client-supplied JSON object of required ->
// uploaded column names. An empty string yields a nil Mapping (no explicit
// mapping); "{}" yields an empty, non-nil one.
func ParseColumnMapping(raw string) (schema.Mapping, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var mapping map[string]string
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, fmt.Errorf("column_mapping must be a JSON object")
	}
	return schema.Mapping(mapping), nil
}

func readStoredCSV(path string) (*schema.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return schema.ReadCSV(f)
}
