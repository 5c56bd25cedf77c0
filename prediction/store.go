package prediction

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a user or upload does not exist.
var ErrNotFound = errors.New("not found")

// Store persists users, uploads and their predictions.
type Store interface {
	// GetOrCreateUser returns the user with email, creating it if needed.
	GetOrCreateUser(ctx context.Context, email string) (*User, error)

	// CreateUpload records an accepted file for a user together with its
	// predictions. Either all of them are stored or none are.
	CreateUpload(ctx context.Context, userID int64, filename string, rows []Row) (*Upload, error)

	// GetUpload returns ErrNotFound when the upload does not exist.
	GetUpload(ctx context.Context, id int64) (*Upload, error)

	// ListPredictions returns the upload's predictions ordered by id.
	ListPredictions(ctx context.Context, uploadID int64) ([]StoredPrediction, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// InMemoryStore implements Store with maps and auto-incremented ids.
// Thread-safe with RWMutex.
type InMemoryStore struct {
	users       map[string]*User
	uploads     map[int64]*Upload
	predictions map[int64][]StoredPrediction
	nextID      struct{ user, upload, prediction int64 }
	now         func() time.Time
	mu          sync.RWMutex
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:       make(map[string]*User),
		uploads:     make(map[int64]*Upload),
		predictions: make(map[int64][]StoredPrediction),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryStore) GetOrCreateUser(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[email]; ok {
		copied := *u
		return &copied, nil
	}

	s.nextID.user++
	u := &User{ID: s.nextID.user, Email: email, CreatedAt: s.now()}
	s.users[email] = u
	copied := *u
	return &copied, nil
}

func (s *InMemoryStore) CreateUpload(_ context.Context, userID int64, filename string, rows []Row) (*Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.nextID.upload++
	u := &Upload{ID: s.nextID.upload, UserID: userID, Filename: filename, UploadedAt: now}

	stored := make([]StoredPrediction, len(rows))
	for i, r := range rows {
		s.nextID.prediction++
		stored[i] = StoredPrediction{
			ID:               s.nextID.prediction,
			UploadID:         u.ID,
			CustomerID:       r.RowID,
			ChurnProbability: r.Probability,
			ChurnLabel:       r.Label,
			CreatedAt:        now,
		}
	}

	s.uploads[u.ID] = u
	s.predictions[u.ID] = stored
	copied := *u
	return &copied, nil
}

func (s *InMemoryStore) GetUpload(_ context.Context, id int64) (*Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.uploads[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *InMemoryStore) ListPredictions(_ context.Context, uploadID int64) ([]StoredPrediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	preds := s.predictions[uploadID]
	out := make([]StoredPrediction, len(preds))
	copy(out, preds)
	return out, nil
}

func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}
