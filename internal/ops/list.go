package ops

import (
	"context"

	"github.com/hpungsan/sift/internal/filter"
	"github.com/hpungsan/sift/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Filters filter.Set
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Data           []*store.Record `json:"data"`
	Count          int             `json:"count"`
	FiltersApplied filter.Set      `json:"filters_applied"`
}

// List returns every stored record matching all of the given filters, in
// insertion order. An empty filter set returns everything.
func List(ctx context.Context, s *store.Store, input ListInput) (*ListOutput, error) {
	if err := input.Filters.Validate(); err != nil {
		return nil, err
	}

	matched, err := scan(ctx, s, input.Filters)
	if err != nil {
		return nil, err
	}

	return &ListOutput{
		Data:           matched,
		Count:          len(matched),
		FiltersApplied: input.Filters,
	}, nil
}

// scan loads every record and keeps the ones matching set.
func scan(ctx context.Context, s *store.Store, set filter.Set) ([]*store.Record, error) {
	recs, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	// Filter in place; recs is a fresh slice owned by this call
	matched := recs[:0]
	for _, rec := range recs {
		if filter.Matches(rec.Properties, set) {
			matched = append(matched, rec)
		}
	}
	return nonNil(matched), nil
}
