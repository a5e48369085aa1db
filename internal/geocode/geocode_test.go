package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/floodzone/internal/domain"
)

type fuzzyOnly struct {
	results   []domain.SearchResult
	err       error
	lastLimit int
}

func (f *fuzzyOnly) Autocomplete(context.Context, string, int) ([]domain.SearchResult, error) {
	return nil, errors.New("not used")
}

func (f *fuzzyOnly) Fuzzy(_ context.Context, _ string, limit int) ([]domain.SearchResult, error) {
	f.lastLimit = limit
	return f.results, f.err
}

func (f *fuzzyOnly) Reverse(context.Context, domain.Coordinate) (*domain.Address, error) {
	return nil, nil
}

func TestFirstMatch(t *testing.T) {
	g := &fuzzyOnly{results: []domain.SearchResult{{Position: domain.Position{Lat: 1, Lon: 2}}}}

	res, err := FirstMatch(context.Background(), g, "somewhere")
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Position.Lon)
	assert.Equal(t, FuzzyLimit, g.lastLimit)
}

func TestFirstMatchNoResults(t *testing.T) {
	_, err := FirstMatch(context.Background(), &fuzzyOnly{}, "nowhere")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestFirstMatchError(t *testing.T) {
	boom := errors.New("boom")
	_, err := FirstMatch(context.Background(), &fuzzyOnly{err: boom}, "x")
	assert.ErrorIs(t, err, boom)
}
