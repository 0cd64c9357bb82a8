package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hpungsan/sift/internal/analysis"
	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/store"
)

// ImportMode controls what happens when a record is already stored.
type ImportMode string

const (
	ImportModeError ImportMode = "error" // refuse the whole file on any bad, stored or repeated record
	ImportModeSkip  ImportMode = "skip"  // report and skip those lines
)

// maxImportLine bounds a single JSONL line.
const maxImportLine = 16 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one line that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// exportLine is one line of an export file; header and record fields share
// the shape so a single decode classifies the line.
type exportLine struct {
	SiftExport bool      `json:"_sift_export,omitempty"`
	ID         string    `json:"id"`
	Value      *string   `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
}

type importRecord struct {
	line      int
	id        string
	value     string
	createdAt time.Time
}

// Import loads records from a JSONL export. Properties are recomputed from
// each value; a stored id that does not match the value's hash is rejected.
//
// In error mode nothing is written when any line is malformed, any value is
// already stored, or a value repeats within the file. In skip mode those
// lines are reported and skipped. Either way the remaining records are
// inserted as one batch, so a storage failure or cancellation writes nothing.
func Import(ctx context.Context, s *store.Store, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openNoFollow(input.Path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, parseErrors := parseExport(file)
	out := &ImportOutput{Errors: []ImportError{}}

	if len(parseErrors) > 0 {
		out.Errors = append(out.Errors, parseErrors...)
		if input.Mode == ImportModeError {
			return out, nil
		}
		out.Skipped += len(parseErrors)
	}

	pending, conflicts, err := partitionConflicts(ctx, s, records)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		out.Errors = append(out.Errors, conflicts...)
		if input.Mode == ImportModeError {
			return out, nil
		}
		out.Skipped += len(conflicts)
	}

	if ctx.Err() != nil {
		return nil, errors.NewCancelled("import")
	}

	entries := make([]store.Entry, len(pending))
	for i, r := range pending {
		entries[i] = store.Entry{Value: r.value, CreatedAt: r.createdAt}
	}
	if _, err := s.RestoreAll(ctx, entries); err != nil {
		return nil, err
	}

	out.Imported = len(pending)
	return out, nil
}

// partitionConflicts splits records into those to insert and those that
// collide with a stored value or with an earlier line of the same file.
func partitionConflicts(ctx context.Context, s *store.Store, records []importRecord) ([]importRecord, []ImportError, error) {
	var (
		pending   []importRecord
		conflicts []ImportError
	)
	firstLine := make(map[string]int, len(records))

	for _, r := range records {
		if ctx.Err() != nil {
			return nil, nil, errors.NewCancelled("import")
		}

		if line, ok := firstLine[r.id]; ok {
			conflicts = append(conflicts, ImportError{
				Line:    r.line,
				ID:      r.id,
				Code:    string(errors.ErrConflict),
				Message: fmt.Sprintf("duplicate of line %d", line),
			})
			continue
		}
		firstLine[r.id] = r.line

		existing, err := s.FindByValue(ctx, r.value)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			conflicts = append(conflicts, ImportError{
				Line:    r.line,
				ID:      r.id,
				Code:    string(errors.ErrConflict),
				Message: "string already exists",
			})
			continue
		}
		pending = append(pending, r)
	}
	return pending, conflicts, nil
}

// parseExport reads every line of an export file. Header lines and blank
// lines are skipped.
func parseExport(r io.Reader) ([]importRecord, []ImportError) {
	var (
		records []importRecord
		errs    []ImportError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var line exportLine
		if err := json.Unmarshal(raw, &line); err != nil {
			errs = append(errs, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if line.SiftExport {
			continue
		}
		if line.Value == nil {
			errs = append(errs, ImportError{
				Line:    lineNum,
				ID:      line.ID,
				Code:    "INVALID_RECORD",
				Message: "missing value field",
			})
			continue
		}

		id := analysis.ID(*line.Value)
		if line.ID != "" && line.ID != id {
			errs = append(errs, ImportError{
				Line:    lineNum,
				ID:      line.ID,
				Code:    "INVALID_RECORD",
				Message: "id does not match the hash of value",
			})
			continue
		}

		records = append(records, importRecord{
			line:      lineNum,
			id:        id,
			value:     *line.Value,
			createdAt: line.CreatedAt,
		})
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, errs
}
