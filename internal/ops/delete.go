package ops

import (
	"context"

	"github.com/hpungsan/sift/internal/analysis"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/store"
)

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete removes the record stored for a value. Deleting an absent value
// is NOT_FOUND, so a second delete of the same value fails.
func Delete(ctx context.Context, s *store.Store, input ValueInput) (*DeleteOutput, error) {
	deleted, err := s.DeleteByValue(ctx, input.Value)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, errors.NewNotFound(input.Value)
	}

	return &DeleteOutput{
		Deleted: true,
		ID:      analysis.ID(input.Value),
	}, nil
}
