package geocode

import (
	"context"
	"errors"

	"github.com/vbonduro/floodzone/internal/domain"
)

// Result limits used by the search screens.
const (
	AutocompleteLimit = 5
	FuzzyLimit        = 1
)

// ErrNoResults is returned when a lookup that must resolve a location finds none.
var ErrNoResults = errors.New("no location found")

// Gateway is the external search provider. It is owned by a third party;
// callers should expect its own latency and error profile.
type Gateway interface {
	// Autocomplete returns typeahead candidates for a partial address.
	Autocomplete(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
	// Fuzzy resolves free text to the best matching locations.
	Fuzzy(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
	// Reverse returns the address at a coordinate.
	Reverse(ctx context.Context, at domain.Coordinate) (*domain.Address, error)
}

// FirstMatch runs a fuzzy search with FuzzyLimit and returns the top
// candidate, or ErrNoResults.
func FirstMatch(ctx context.Context, g Gateway, query string) (*domain.SearchResult, error) {
	results, err := g.Fuzzy(ctx, query, FuzzyLimit)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return &results[0], nil
}
