// Package ops holds the request-level operations shared by the HTTP API,
// the CLI and the MCP tools. Every function returns *errors.StringError
// values so each surface can render failures the same way.
package ops

import (
	"github.com/hpungsan/sift/internal/store"
)

// ExportSchemaVersion is written to the header line of every export file.
const ExportSchemaVersion = "1.0"

// ValueInput addresses a record by its raw value.
type ValueInput struct {
	Value string
}

// nonNil guarantees list-shaped outputs serialize as [] rather than null.
func nonNil(recs []*store.Record) []*store.Record {
	if recs == nil {
		return []*store.Record{}
	}
	return recs
}
