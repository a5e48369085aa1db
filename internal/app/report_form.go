package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/floodzone/internal/domain"
	"github.com/vbonduro/floodzone/internal/search"
)

// reportAdder is the subset of reports.Collection that ReportForm requires.
type reportAdder interface {
	Add(ctx context.Context, draft domain.ReportDraft) (*domain.Report, error)
}

// reverser is the reverse-geocoding half of geocode.Gateway.
type reverser interface {
	Reverse(ctx context.Context, at domain.Coordinate) (*domain.Address, error)
}

// ReportForm is the make-report screen: an address box backed by a search
// flow and a submit action.
type ReportForm struct {
	flow    *search.Flow
	geo     reverser
	reports reportAdder
	logger  *slog.Logger
	now     func() time.Time
}

func NewReportForm(flow *search.Flow, geo reverser, reports reportAdder, logger *slog.Logger) *ReportForm {
	return &ReportForm{flow: flow, geo: geo, reports: reports, logger: logger, now: time.Now}
}

func (f *ReportForm) Flow() *search.Flow {
	return f.flow
}

// SetAddress records the address text as the user types it.
func (f *ReportForm) SetAddress(text string) {
	f.flow.SetQuery(text)
}

// SelectSuggestion fills the address from the i-th autocomplete result.
func (f *ReportForm) SelectSuggestion(i int) (*domain.SearchResult, error) {
	return f.flow.Select(i)
}

// Submit locates the address, builds the draft and hands it to the report
// collection. A chosen suggestion is used as is; typed text costs one fuzzy
// search. The form is cleared on success.
func (f *ReportForm) Submit(ctx context.Context) (*domain.Report, error) {
	text := strings.TrimSpace(f.flow.Snapshot().Query)
	if text == "" {
		return nil, fmt.Errorf("%w: address is required", ErrValidation)
	}

	loc, err := f.flow.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to locate address: %w", err)
	}

	draft := domain.ReportDraft{
		Address:   text,
		Time:      f.now().Format("15:04"),
		Latitude:  loc.Position.Lat,
		Longitude: loc.Position.Lon,
	}
	f.enrich(ctx, &draft, loc)

	report, err := f.reports.Add(ctx, draft)
	if err != nil {
		return nil, err
	}
	f.flow.Reset()
	return report, nil
}

// enrich fills the address hierarchy from the search result, asking the
// provider for a reverse lookup when the result carries none. Lookup
// failures leave the fields empty.
func (f *ReportForm) enrich(ctx context.Context, draft *domain.ReportDraft, loc *domain.SearchResult) {
	addr := &loc.Address
	if addr.Country == "" && addr.Municipality == "" {
		rev, err := f.geo.Reverse(ctx, loc.Coordinate())
		if err != nil {
			f.logger.Warn("reverse geocode failed", "lat", loc.Position.Lat, "lon", loc.Position.Lon, "error", err)
			return
		}
		if rev == nil {
			return
		}
		addr = rev
	}
	draft.Country = addr.Country
	draft.State = addr.CountrySubdivision
	draft.City = addr.Municipality
	draft.Neighborhood = addr.MunicipalitySubdivision
	draft.ZIP = addr.PostalCode
}

func (f *ReportForm) Close() {
	f.flow.Close()
}
