package ops

import (
	"context"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/store"
)

// Fetch retrieves the record stored for a value.
func Fetch(ctx context.Context, s *store.Store, input ValueInput) (*store.Record, error) {
	rec, err := s.FindByValue(ctx, input.Value)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.NewNotFound(input.Value)
	}
	return rec, nil
}
