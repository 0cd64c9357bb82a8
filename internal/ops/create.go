package ops

import (
	"context"

	"github.com/hpungsan/sift/internal/store"
)

// Create analyzes and stores a value. Storing a value twice fails with
// CONFLICT and leaves the first record untouched.
func Create(ctx context.Context, s *store.Store, input ValueInput) (*store.Record, error) {
	return s.Create(ctx, input.Value)
}
