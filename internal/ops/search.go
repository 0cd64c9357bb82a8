package ops

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/filter"
	"github.com/hpungsan/sift/internal/store"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query string
}

// InterpretedQuery echoes the query alongside the filters derived from it.
type InterpretedQuery struct {
	Original      string     `json:"original"`
	ParsedFilters filter.Set `json:"parsed_filters"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Data             []*store.Record  `json:"data"`
	Count            int              `json:"count"`
	InterpretedQuery InterpretedQuery `json:"interpreted_query"`
}

// Search interprets a natural-language query as a filter set and lists the
// matching records.
func Search(ctx context.Context, s *store.Store, input SearchInput) (*SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}

	set, err := filter.ParseNatural(input.Query)
	if err != nil {
		if stderrors.Is(err, filter.ErrUnparseable) {
			return nil, errors.NewUnparseableQuery(input.Query)
		}
		return nil, errors.NewInternal(err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	matched, err := scan(ctx, s, set)
	if err != nil {
		return nil, err
	}

	return &SearchOutput{
		Data:  matched,
		Count: len(matched),
		InterpretedQuery: InterpretedQuery{
			Original:      input.Query,
			ParsedFilters: set,
		},
	}, nil
}
