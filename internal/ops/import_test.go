package ops

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/sift/internal/analysis"
	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/store"
)

func writeExport(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0700))
	path := filepath.Join(dir, "in.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))
	return path
}

func TestImport_RoundTrip(t *testing.T) {
	exports := setupHome(t)
	ctx := context.Background()
	cfg := config.DefaultConfig()

	src := newTestStore(t)
	seed(t, src, "one", "two words", "abba")
	path := filepath.Join(exports, "backup.jsonl")
	_, err := Export(ctx, src, cfg, ExportInput{Path: path})
	require.NoError(t, err)

	dst := newTestStore(t)
	out, err := Import(ctx, dst, cfg, ImportInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Imported)
	assert.Equal(t, 0, out.Skipped)
	assert.Empty(t, out.Errors)

	list, err := List(ctx, dst, ListInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two words", "abba"}, values(list.Data))
	assert.Equal(t, testNow, list.Data[0].CreatedAt)
}

func TestImport_PreservesCreatedAtAndRecomputes(t *testing.T) {
	exports := setupHome(t)
	path := writeExport(t, exports,
		`{"_sift_export":true,"schema_version":"1.0","exported_at":0}`,
		`{"value":"noon","properties":{"length":999},"created_at":"2020-01-02T03:04:05.000006Z"}`,
	)

	s := newTestStore(t)
	out, err := Import(context.Background(), s, config.DefaultConfig(), ImportInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, 1, out.Imported)

	rec, err := Fetch(context.Background(), s, ValueInput{Value: "noon"})
	require.NoError(t, err)
	assert.Equal(t, analysis.Analyze("noon"), rec.Properties)
	assert.Equal(t, time.Date(2020, 1, 2, 3, 4, 5, 6000, time.UTC), rec.CreatedAt)
}

func TestImport_ErrorModeAbortsOnConflict(t *testing.T) {
	exports := setupHome(t)
	path := writeExport(t, exports,
		`{"value":"new"}`,
		`{"value":"existing"}`,
	)

	s := newTestStore(t)
	seed(t, s, "existing")

	out, err := Import(context.Background(), s, config.DefaultConfig(), ImportInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Imported)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 2, out.Errors[0].Line)
	assert.Equal(t, "CONFLICT", out.Errors[0].Code)

	_, err = Fetch(context.Background(), s, ValueInput{Value: "new"})
	assert.True(t, errors.Is(err, errors.ErrNotFound), "nothing may be written in error mode")
}

func TestImport_ErrorModeAbortsOnParseError(t *testing.T) {
	exports := setupHome(t)
	path := writeExport(t, exports, `{"value":"fine"}`, `{broken`)

	s := newTestStore(t)
	out, err := Import(context.Background(), s, config.DefaultConfig(), ImportInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Imported)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "PARSE_ERROR", out.Errors[0].Code)
}

func TestImport_SkipMode(t *testing.T) {
	exports := setupHome(t)
	path := writeExport(t, exports,
		`{"value":"existing"}`,
		`not json`,
		`{"id":"deadbeef","value":"tampered"}`,
		`{"id":"abc"}`,
		``,
		`{"value":"fresh"}`,
	)

	s := newTestStore(t)
	seed(t, s, "existing")

	out, err := Import(context.Background(), s, config.DefaultConfig(), ImportInput{Path: path, Mode: ImportModeSkip})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Imported)
	assert.Equal(t, 4, out.Skipped)

	codes := make([]string, len(out.Errors))
	for i, e := range out.Errors {
		codes[i] = e.Code
	}
	assert.ElementsMatch(t, []string{"PARSE_ERROR", "INVALID_RECORD", "INVALID_RECORD", "CONFLICT"}, codes)

	_, err = Fetch(context.Background(), s, ValueInput{Value: "fresh"})
	assert.NoError(t, err)
}

func TestImport_ErrorModeRejectsRepeatedValue(t *testing.T) {
	exports := setupHome(t)
	path := writeExport(t, exports,
		`{"value":"dup"}`,
		`{"value":"other"}`,
		`{"value":"dup"}`,
	)

	s := newTestStore(t)
	out, err := Import(context.Background(), s, config.DefaultConfig(), ImportInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Imported)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 3, out.Errors[0].Line)
	assert.Equal(t, "CONFLICT", out.Errors[0].Code)
	assert.Equal(t, "duplicate of line 1", out.Errors[0].Message)
	assert.Equal(t, analysis.ID("dup"), out.Errors[0].ID)

	list, err := List(context.Background(), s, ListInput{})
	require.NoError(t, err)
	assert.Empty(t, list.Data, "nothing may be written in error mode")
}

func TestImport_SkipModeKeepsFirstOfRepeatedValue(t *testing.T) {
	exports := setupHome(t)
	path := writeExport(t, exports,
		`{"value":"dup","created_at":"2020-01-01T00:00:00Z"}`,
		`{"value":"dup","created_at":"2021-01-01T00:00:00Z"}`,
	)

	s := newTestStore(t)
	out, err := Import(context.Background(), s, config.DefaultConfig(), ImportInput{Path: path, Mode: ImportModeSkip})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Imported)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 2, out.Errors[0].Line)

	rec, err := Fetch(context.Background(), s, ValueInput{Value: "dup"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), rec.CreatedAt)
}

var errDiskFull = stderrors.New("disk full")

// brokenBatchBackend stores single records but fails every batch insert.
type brokenBatchBackend struct {
	*store.Memory
}

func (brokenBatchBackend) PutAll(context.Context, []*store.Record) error {
	return errDiskFull
}

func TestImport_StorageFailureWritesNothing(t *testing.T) {
	exports := setupHome(t)
	path := writeExport(t, exports,
		`{"value":"alpha"}`,
		`{"value":"beta"}`,
		`{"value":"gamma"}`,
	)

	backend := brokenBatchBackend{Memory: store.NewMemory()}
	s := store.New(backend, store.WithClock(func() time.Time { return testNow }))
	t.Cleanup(func() { s.Close() })

	for _, mode := range []ImportMode{ImportModeError, ImportModeSkip} {
		t.Run(string(mode), func(t *testing.T) {
			out, err := Import(context.Background(), s, config.DefaultConfig(), ImportInput{Path: path, Mode: mode})
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, errors.ErrInternal))
			assert.True(t, stderrors.Is(err, errDiskFull))

			all, err := s.ListAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestImport_CancelledWritesNothing(t *testing.T) {
	exports := setupHome(t)
	path := writeExport(t, exports, `{"value":"alpha"}`, `{"value":"beta"}`)

	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Import(ctx, s, config.DefaultConfig(), ImportInput{Path: path})
	assert.True(t, errors.Is(err, errors.ErrCancelled))

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImport_InvalidMode(t *testing.T) {
	s := newTestStore(t)

	_, err := Import(context.Background(), s, config.DefaultConfig(), ImportInput{Path: "x.jsonl", Mode: "replace"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestImport_MissingFile(t *testing.T) {
	exports := setupHome(t)
	s := newTestStore(t)

	_, err := Import(context.Background(), s, config.DefaultConfig(), ImportInput{Path: filepath.Join(exports, "nope.jsonl")})
	assert.True(t, errors.Is(err, errors.ErrFileNotFound))
}

func TestParseExport_EmptyValueIsValid(t *testing.T) {
	records, errs := parseExport(strings.NewReader(`{"value":""}` + "\n"))
	assert.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, analysis.ID(""), records[0].id)
}
