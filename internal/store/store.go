// Package store is the content-addressed record store. Records are keyed by
// the SHA-256 of their value, so a value can be stored at most once.
package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/hpungsan/sift/internal/analysis"
	"github.com/hpungsan/sift/internal/errors"
)

// ErrDuplicateID is returned by a Backend when Put targets an ID that is
// already stored.
var ErrDuplicateID = stderrors.New("duplicate id")

// DuplicateIDError names the ID that collided. It matches ErrDuplicateID
// under errors.Is.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return "duplicate id " + e.ID
}

func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateID
}

// Record is a stored string with its derived properties.
type Record struct {
	ID         string              `json:"id"`
	Value      string              `json:"value"`
	Properties analysis.Properties `json:"properties"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Backend is the persistence collaborator behind a Store.
type Backend interface {
	// Put inserts rec unless its ID already exists, in which case it returns
	// ErrDuplicateID and leaves the existing record untouched. The check and
	// the insert happen atomically.
	Put(ctx context.Context, rec *Record) error

	// PutAll inserts every record or none of them. An ID that is already
	// stored, or that repeats within recs, fails the whole batch with a
	// *DuplicateIDError.
	PutAll(ctx context.Context, recs []*Record) error

	// Get returns the record with the given ID, or (nil, nil) if absent.
	Get(ctx context.Context, id string) (*Record, error)

	// Delete removes the record with the given ID and reports whether a
	// record was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// Scan returns every record in insertion order.
	Scan(ctx context.Context) ([]*Record, error)

	Close() error
}

// Store applies content addressing on top of a Backend.
type Store struct {
	backend Backend
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying persistence collaborator.
func (s *Store) Backend() Backend {
	return s.backend
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Create analyzes value and persists it. A value that is already stored
// yields a CONFLICT error.
func (s *Store) Create(ctx context.Context, value string) (*Record, error) {
	return s.insert(ctx, value, s.now())
}

// Entry is a value to restore together with its original creation time.
type Entry struct {
	Value     string
	CreatedAt time.Time
}

// RestoreAll persists every entry or none of them. A value that is already
// stored, or that appears twice in entries, yields a CONFLICT error and
// nothing is written.
func (s *Store) RestoreAll(ctx context.Context, entries []Entry) ([]*Record, error) {
	recs := make([]*Record, 0, len(entries))
	if len(entries) == 0 {
		return recs, nil
	}

	now := s.now()
	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		recs = append(recs, newRecord(e.Value, createdAt))
	}

	if err := s.backend.PutAll(ctx, recs); err != nil {
		return nil, conflictOrInternal(err)
	}
	return recs, nil
}

func (s *Store) insert(ctx context.Context, value string, createdAt time.Time) (*Record, error) {
	rec := newRecord(value, createdAt)
	if err := s.backend.Put(ctx, rec); err != nil {
		return nil, conflictOrInternal(err)
	}
	return rec, nil
}

func newRecord(value string, createdAt time.Time) *Record {
	props := analysis.Analyze(value)
	return &Record{
		ID:         props.SHA256Hash,
		Value:      value,
		Properties: props,
		CreatedAt:  createdAt.UTC().Truncate(time.Microsecond),
	}
}

// conflictOrInternal maps a backend write error to CONFLICT or INTERNAL.
func conflictOrInternal(err error) error {
	var dup *DuplicateIDError
	if stderrors.As(err, &dup) {
		return errors.NewConflict(dup.ID)
	}
	if stderrors.Is(err, ErrDuplicateID) {
		return errors.NewConflict("")
	}
	return errors.NewInternal(err)
}

// FindByValue returns the record stored for value, or (nil, nil) if there
// is none.
func (s *Store) FindByValue(ctx context.Context, value string) (*Record, error) {
	rec, err := s.backend.Get(ctx, analysis.ID(value))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rec, nil
}

// DeleteByValue removes the record stored for value and reports whether
// one was removed.
func (s *Store) DeleteByValue(ctx context.Context, value string) (bool, error) {
	deleted, err := s.backend.Delete(ctx, analysis.ID(value))
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return deleted, nil
}

// ListAll returns every stored record.
func (s *Store) ListAll(ctx context.Context) ([]*Record, error) {
	recs, err := s.backend.Scan(ctx)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if recs == nil {
		recs = []*Record{}
	}
	return recs, nil
}
