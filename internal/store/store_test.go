package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/sift/internal/analysis"
	"github.com/hpungsan/sift/internal/errors"
)

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return New(NewMemory(), WithClock(func() time.Time { return fixedNow }))
}

func TestCreate_HappyPath(t *testing.T) {
	s := newTestStore()

	rec, err := s.Create(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, analysis.ID("hello"), rec.ID)
	assert.Equal(t, "hello", rec.Value)
	assert.Equal(t, analysis.Analyze("hello"), rec.Properties)
	assert.Equal(t, fixedNow, rec.CreatedAt)
	assert.Equal(t, rec.ID, rec.Properties.SHA256Hash)
}

func TestCreate_CreatedAtIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	s := New(NewMemory(), WithClock(func() time.Time { return fixedNow.In(loc) }))

	rec, err := s.Create(context.Background(), "tz")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.True(t, rec.CreatedAt.Equal(fixedNow))
}

func TestCreate_DuplicateConflicts(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	first, err := s.Create(ctx, "hello")
	require.NoError(t, err)

	_, err = s.Create(ctx, "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict), "got %v", err)

	// Original untouched
	got, err := s.FindByValue(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestCreate_ConcurrentDuplicates(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, "race")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, errors.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRestoreAll_KeepsCreatedAt(t *testing.T) {
	s := newTestStore()
	past := time.Date(2020, 2, 29, 23, 59, 59, 999999999, time.UTC)

	recs, err := s.RestoreAll(context.Background(), []Entry{
		{Value: "old news", CreatedAt: past},
		{Value: "fresh"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, past.Truncate(time.Microsecond), recs[0].CreatedAt)
	assert.Equal(t, analysis.Analyze("old news"), recs[0].Properties)
	assert.Equal(t, fixedNow, recs[1].CreatedAt, "zero time means now")

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRestoreAll_Empty(t *testing.T) {
	s := New(failingBackend{err: fmt.Errorf("must not be called")})

	recs, err := s.RestoreAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRestoreAll_ConflictWritesNothing(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.Create(ctx, "dup")
	require.NoError(t, err)

	_, err = s.RestoreAll(ctx, []Entry{{Value: "first"}, {Value: "dup"}, {Value: "last"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Equal(t, analysis.ID("dup"), errors.From(err).Details["id"])

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "batch must be all or nothing")
}

func TestRestoreAll_RepeatedValueWritesNothing(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.RestoreAll(ctx, []Entry{{Value: "twice"}, {Value: "once"}, {Value: "twice"}})
	assert.True(t, errors.Is(err, errors.ErrConflict))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDuplicateIDError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &DuplicateIDError{ID: "abc"})
	assert.True(t, stderrors.Is(err, ErrDuplicateID))

	var dup *DuplicateIDError
	require.True(t, stderrors.As(err, &dup))
	assert.Equal(t, "abc", dup.ID)
}

func TestFindByValue_RoundTrip(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for _, v := range []string{"", "racecar", "two words", "ünïcödé ✓"} {
		_, err := s.Create(ctx, v)
		require.NoError(t, err)

		got, err := s.FindByValue(ctx, v)
		require.NoError(t, err)
		require.NotNil(t, got, "value %q", v)
		assert.Equal(t, analysis.Analyze(v), got.Properties)
		assert.Equal(t, v, got.Value)
	}
}

func TestFindByValue_Missing(t *testing.T) {
	s := newTestStore()

	got, err := s.FindByValue(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteByValue(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.Create(ctx, "delete me")
	require.NoError(t, err)

	deleted, err := s.DeleteByValue(ctx, "delete me")
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := s.FindByValue(ctx, "delete me")
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err = s.DeleteByValue(ctx, "delete me")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteByValue_AllowsRecreate(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.Create(ctx, "again")
	require.NoError(t, err)
	_, err = s.DeleteByValue(ctx, "again")
	require.NoError(t, err)

	_, err = s.Create(ctx, "again")
	assert.NoError(t, err)
}

func TestListAll_InsertionOrder(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	values := []string{"c", "a", "b"}
	for _, v := range values {
		_, err := s.Create(ctx, v)
		require.NoError(t, err)
	}
	_, err := s.DeleteByValue(ctx, "a")
	require.NoError(t, err)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].Value)
	assert.Equal(t, "b", all[1].Value)
}

func TestListAll_EmptyIsNotNil(t *testing.T) {
	s := newTestStore()

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	rec, err := s.Create(ctx, "hello")
	require.NoError(t, err)
	rec.Properties.CharacterFrequencyMap["z"] = 99

	got, err := s.FindByValue(ctx, "hello")
	require.NoError(t, err)
	_, ok := got.Properties.CharacterFrequencyMap["z"]
	assert.False(t, ok, "stored record must not share the caller's map")
}

func TestMemory_CancelledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Put(ctx, &Record{ID: "x"}), context.Canceled)
	assert.ErrorIs(t, m.PutAll(ctx, []*Record{{ID: "y"}}), context.Canceled)
	_, err := m.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemory_PutAll(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, &Record{ID: "a", Value: "a"}))

	err := m.PutAll(ctx, []*Record{{ID: "b", Value: "b"}, {ID: "a", Value: "a"}})
	var dup *DuplicateIDError
	require.True(t, stderrors.As(err, &dup))
	assert.Equal(t, "a", dup.ID)

	err = m.PutAll(ctx, []*Record{{ID: "c", Value: "c"}, {ID: "c", Value: "c"}})
	assert.ErrorIs(t, err, ErrDuplicateID)

	all, err := m.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "rejected batches must leave no rows behind")

	require.NoError(t, m.PutAll(ctx, []*Record{{ID: "d", Value: "d"}, {ID: "b", Value: "b"}}))
	all, err = m.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "d", "b"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

// failingBackend returns err from every call.
type failingBackend struct{ err error }

func (f failingBackend) Put(context.Context, *Record) error { return f.err }
func (f failingBackend) PutAll(context.Context, []*Record) error { return f.err }
func (f failingBackend) Get(context.Context, string) (*Record, error) { return nil, f.err }
func (f failingBackend) Delete(context.Context, string) (bool, error) { return false, f.err }
func (f failingBackend) Scan(context.Context) ([]*Record, error) { return nil, f.err }
func (f failingBackend) Close() error { return nil }

func TestStore_BackendFailuresAreInternal(t *testing.T) {
	cause := fmt.Errorf("disk full")
	s := New(failingBackend{err: cause})
	ctx := context.Background()

	_, err := s.Create(ctx, "x")
	assert.True(t, errors.Is(err, errors.ErrInternal))
	assert.True(t, stderrors.Is(err, cause))

	_, err = s.FindByValue(ctx, "x")
	assert.True(t, errors.Is(err, errors.ErrInternal))

	_, err = s.DeleteByValue(ctx, "x")
	assert.True(t, errors.Is(err, errors.ErrInternal))

	_, err = s.ListAll(ctx)
	assert.True(t, errors.Is(err, errors.ErrInternal))

	_, err = s.RestoreAll(ctx, []Entry{{Value: "x"}})
	assert.True(t, errors.Is(err, errors.ErrInternal))
	assert.True(t, stderrors.Is(err, cause))
}
