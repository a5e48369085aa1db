package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/floodzone/internal/config"
	"github.com/vbonduro/floodzone/internal/db"
	"github.com/vbonduro/floodzone/internal/domain"
	"github.com/vbonduro/floodzone/internal/reports"
	"github.com/vbonduro/floodzone/internal/search"
	"github.com/vbonduro/floodzone/internal/session"
)

// recorder keeps the order of outbound calls across the backend and the
// geocoder.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(e string) int {
	n := 0
	for _, got := range r.all() {
		if got == e {
			n++
		}
	}
	return n
}

type fakeGateway struct {
	rec      *recorder
	suggest  []domain.SearchResult
	fuzzy    []domain.SearchResult
	reverse  *domain.Address
	fuzzyErr error
}

func (g *fakeGateway) Autocomplete(_ context.Context, _ string, _ int) ([]domain.SearchResult, error) {
	g.rec.add("autocomplete")
	return g.suggest, nil
}

func (g *fakeGateway) Fuzzy(_ context.Context, _ string, _ int) ([]domain.SearchResult, error) {
	g.rec.add("fuzzy")
	return g.fuzzy, g.fuzzyErr
}

func (g *fakeGateway) Reverse(context.Context, domain.Coordinate) (*domain.Address, error) {
	g.rec.add("reverse")
	return g.reverse, nil
}

// fakeBackend answers the floodzone REST API.
type fakeBackend struct {
	rec *recorder

	mu          sync.Mutex
	drafts      []map[string]any
	auth        []string
	heatQueries []string
	createErr   int
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/users/login":
		b.rec.add("login")
		_, _ = w.Write([]byte(`{"token":"tok-1","user":{"id":7,"email":"ana@example.com","nome":"Ana"}}`))
	case "/users":
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"token expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":7,"email":"ana@example.com","nome":"Ana"}`))
	case "/reportes/reportar":
		b.rec.add("create")
		var draft map[string]any
		_ = json.NewDecoder(r.Body).Decode(&draft)
		b.mu.Lock()
		b.drafts = append(b.drafts, draft)
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		status := b.createErr
		b.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"endereço inválido"}`))
			return
		}
		draft["idr"] = 41
		draft["idusuario"] = 7
		draft["data"] = "2026-10-18"
		_ = json.NewEncoder(w).Encode(draft)
	case "/reportes/heatmap":
		b.mu.Lock()
		b.heatQueries = append(b.heatQueries, r.URL.RawQuery)
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"points":[{"latitude":-23.55,"longitude":-46.63,"weight":2},{"latitude":"bad","longitude":1}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestApp(t *testing.T, gw *fakeGateway, backend *fakeBackend, opts ...Option) *App {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	database, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := &config.Config{
		APIBaseURL:     srv.URL,
		HTTPTimeout:    2 * time.Second,
		SearchDebounce: 10 * time.Millisecond,
	}
	opts = append([]Option{WithGateway(gw)}, opts...)
	return New(cfg, database, slog.Default(), opts...)
}

func setup(t *testing.T, opts ...Option) (*App, *fakeGateway, *fakeBackend, *recorder) {
	t.Helper()
	rec := &recorder{}
	gw := &fakeGateway{rec: rec}
	backend := &fakeBackend{rec: rec}
	return newTestApp(t, gw, backend, opts...), gw, backend, rec
}

func login(t *testing.T, a *App) {
	t.Helper()
	require.NoError(t, a.Session.Login(context.Background(), "ana@example.com", "secret"))
}

func TestTypedAddressCostsOneFuzzyCallBeforeCreate(t *testing.T) {
	a, gw, backend, rec := setup(t)
	gw.fuzzy = []domain.SearchResult{{Position: domain.Position{Lat: -23.55, Lon: -46.63}}}
	gw.reverse = &domain.Address{
		Country:                 "Brasil",
		CountrySubdivision:      "SP",
		Municipality:            "São Paulo",
		MunicipalitySubdivision: "Sé",
		PostalCode:              "01001-000",
	}
	login(t, a)

	form := a.ReportForm()
	t.Cleanup(form.Close)
	form.now = func() time.Time { return time.Date(2026, 10, 18, 14, 5, 0, 0, time.UTC) }
	form.SetAddress("Praça da Sé")

	report, err := form.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rec.count("fuzzy"))
	assert.Equal(t, 1, rec.count("create"))
	assert.Equal(t, []string{"login", "fuzzy", "reverse", "create"}, filter(rec.all(), "autocomplete"))

	backend.mu.Lock()
	draft := backend.drafts[0]
	auth := backend.auth[0]
	backend.mu.Unlock()
	assert.Equal(t, "Bearer tok-1", auth)
	assert.Equal(t, "Praça da Sé", draft["endereco"])
	assert.Equal(t, "14:05", draft["horario"])
	assert.Equal(t, "Brasil", draft["pais"])
	assert.Equal(t, "São Paulo", draft["cidade"])
	assert.Equal(t, "Sé", draft["bairro"])
	assert.Equal(t, "01001-000", draft["cep"])
	assert.Equal(t, -23.55, draft["latitude"])

	assert.Equal(t, int64(41), report.ID)
	assert.Equal(t, "2026-10-18", report.Date)
	assert.Equal(t, []domain.Report{*report}, a.Reports.Reports())
	assert.Empty(t, form.Flow().Snapshot().Query)
}

func filter(events []string, drop string) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		if e != drop {
			out = append(out, e)
		}
	}
	return out
}

func TestSelectedSuggestionSkipsFuzzyAndReverse(t *testing.T) {
	a, gw, backend, rec := setup(t)
	gw.suggest = []domain.SearchResult{{
		Position: domain.Position{Lat: -22.9, Lon: -43.2},
		Address:  domain.Address{FreeformAddress: "Rua do Catete, Rio de Janeiro", Country: "Brasil", Municipality: "Rio de Janeiro"},
	}}
	login(t, a)

	form := a.ReportForm()
	t.Cleanup(form.Close)
	form.SetAddress("Rua do Cat")
	require.Eventually(t, func() bool {
		return form.Flow().Snapshot().State == search.StateResultsShown
	}, time.Second, 5*time.Millisecond)
	_, err := form.SelectSuggestion(0)
	require.NoError(t, err)

	_, err = form.Submit(context.Background())
	require.NoError(t, err)

	assert.Zero(t, rec.count("fuzzy"))
	assert.Zero(t, rec.count("reverse"))
	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, "Rua do Catete, Rio de Janeiro", backend.drafts[0]["endereco"])
	assert.Equal(t, "Rio de Janeiro", backend.drafts[0]["cidade"])
}

func TestSubmitWithoutAddressIsRejectedLocally(t *testing.T) {
	a, _, _, rec := setup(t)

	form := a.ReportForm()
	t.Cleanup(form.Close)
	form.SetAddress("   ")
	_, err := form.Submit(context.Background())

	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "address is required", AlertMessage(err, reports.FallbackMessage))
	assert.Zero(t, rec.count("fuzzy"))
	assert.Zero(t, rec.count("create"))
}

func TestSubmitUnknownAddress(t *testing.T) {
	a, _, _, rec := setup(t)

	form := a.ReportForm()
	t.Cleanup(form.Close)
	form.SetAddress("xyzzy")
	_, err := form.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, notFoundMessage, AlertMessage(err, reports.FallbackMessage))
	assert.Zero(t, rec.count("create"))
}

func TestSubmitFailureShowsServerMessage(t *testing.T) {
	a, gw, backend, _ := setup(t)
	gw.fuzzy = []domain.SearchResult{{Position: domain.Position{Lat: 1, Lon: 1}, Address: domain.Address{Country: "Brasil"}}}
	backend.createErr = http.StatusBadRequest
	login(t, a)

	form := a.ReportForm()
	t.Cleanup(form.Close)
	form.SetAddress("Rua A")
	_, err := form.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, "endereço inválido", AlertMessage(err, reports.FallbackMessage))
	assert.Equal(t, "endereço inválido", a.Reports.Err())
	assert.Empty(t, a.Reports.Reports())
	assert.Equal(t, "Rua A", form.Flow().Snapshot().Query)
}

func TestMapScreenOpensOnFallbackWithoutDeviceLocation(t *testing.T) {
	a, _, backend, _ := setup(t)

	m := a.MapScreen()
	t.Cleanup(m.Close)
	region, err := m.Open(context.Background())

	require.NoError(t, err)
	assert.Equal(t, regionAt(FallbackCoordinate, FallbackDelta), region)
	assert.Equal(t, []domain.HeatmapPoint{{Latitude: -23.55, Longitude: -46.63, Weight: 2}}, m.Points())
	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, []string{"latitude=-23.5438&longitude=-46.561"}, backend.heatQueries)
}

func TestMapScreenOpensOnDeviceLocation(t *testing.T) {
	device := domain.Coordinate{Latitude: -23.6, Longitude: -46.7}
	a, _, _, _ := setup(t, WithLocation(StaticLocation{coord: &device}))

	m := a.MapScreen()
	t.Cleanup(m.Close)
	region, err := m.Open(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Region{Center: device, LatitudeDelta: DeviceDelta, LongitudeDelta: DeviceDelta}, region)
	assert.Equal(t, device, a.Heatmap.LastCoordinate())
}

func TestMapScreenSearchMovesRegionAndRefetches(t *testing.T) {
	a, gw, _, _ := setup(t)
	gw.fuzzy = []domain.SearchResult{{Position: domain.Position{Lat: -22.9, Lon: -43.2}}}

	m := a.MapScreen()
	t.Cleanup(m.Close)
	_, err := m.Open(context.Background())
	require.NoError(t, err)

	m.Flow().SetQuery("Rio de Janeiro")
	_, err = m.Search(context.Background())
	require.NoError(t, err)

	want := domain.Coordinate{Latitude: -22.9, Longitude: -43.2}
	assert.Equal(t, regionAt(want, SearchDelta), m.Region())
	assert.Equal(t, want, a.Heatmap.LastCoordinate())
}

func TestMapScreenSearchFailureKeepsRegion(t *testing.T) {
	a, gw, _, _ := setup(t)
	gw.fuzzyErr = errors.New("provider down")

	m := a.MapScreen()
	t.Cleanup(m.Close)
	_, err := m.Open(context.Background())
	require.NoError(t, err)

	m.Flow().SetQuery("Rio de Janeiro")
	_, err = m.Search(context.Background())
	require.Error(t, err)
	assert.Equal(t, regionAt(FallbackCoordinate, FallbackDelta), m.Region())
}

func TestSessionStartPurgesExpiredToken(t *testing.T) {
	a, _, _, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, a.Tokens.SetToken(ctx, "stale"))
	require.NoError(t, a.Tokens.SetUser(ctx, &domain.User{ID: 7}))

	a.Session.Start(ctx)

	assert.Equal(t, session.StateAnonymous, a.Session.State())
	sess, err := a.Tokens.Session(ctx)
	require.NoError(t, err)
	assert.Empty(t, sess.Token)
	assert.Nil(t, sess.User)
}

func TestSessionRestoresValidToken(t *testing.T) {
	a, _, _, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, a.Tokens.SetToken(ctx, "tok-1"))

	a.Session.Start(ctx)

	assert.Equal(t, session.StateAuthenticated, a.Session.State())
	assert.Equal(t, "Ana", a.Session.User().Name)
}

func TestLogoutNavigatesToLogin(t *testing.T) {
	a, _, _, _ := setup(t)
	login(t, a)
	a.Router.Push(RouteProfile)

	a.Session.Logout(context.Background())

	assert.Equal(t, RouteLogin, a.Router.Current())
	tok, err := a.Tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestProfileScreen(t *testing.T) {
	a, gw, _, _ := setup(t)
	gw.fuzzy = []domain.SearchResult{{Position: domain.Position{Lat: 1, Lon: 1}, Address: domain.Address{Country: "Brasil"}}}
	p := a.Profile()

	_, err := p.View()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.ErrorIs(t, p.Save(context.Background(), "x@y.z", "Ana"), ErrNotLoggedIn)

	login(t, a)
	form := a.ReportForm()
	t.Cleanup(form.Close)
	form.SetAddress("Rua A")
	_, err = form.Submit(context.Background())
	require.NoError(t, err)

	view, err := p.View()
	require.NoError(t, err)
	assert.Equal(t, "Ana", view.Name)
	assert.Len(t, view.Reports, 1)

	err = p.Save(context.Background(), "not-an-email", "Ana")
	require.ErrorIs(t, err, session.ErrValidation)
	assert.Equal(t, "email is malformed", AlertMessage(err, "fallback"))

	require.NoError(t, p.Save(context.Background(), "ana.maria@example.com", "Ana Maria"))
	view, err = p.View()
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", view.Name)
	assert.Equal(t, "ana.maria@example.com", view.Email)

	stored, err := a.Tokens.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", stored.Name)
}

func TestHistoryScreenEmpty(t *testing.T) {
	a, _, _, _ := setup(t)

	assert.Equal(t, []string{EmptyHistoryMessage}, a.History().Lines())
}

func TestMapScreenVisiblePointsAndGeoJSON(t *testing.T) {
	device := domain.Coordinate{Latitude: -23.55, Longitude: -46.63}
	a, gw, _, _ := setup(t, WithLocation(StaticLocation{coord: &device}))
	gw.fuzzy = []domain.SearchResult{{Position: domain.Position{Lat: -22.9, Lon: -43.2}}}

	m := a.MapScreen()
	t.Cleanup(m.Close)
	_, err := m.Open(context.Background())
	require.NoError(t, err)

	assert.Len(t, m.VisiblePoints(), 1)
	require.Len(t, m.GeoJSON().Features, 1)
	assert.Equal(t, 2.0, m.GeoJSON().Features[0].Properties["weight"])

	m.Flow().SetQuery("Rio de Janeiro")
	_, err = m.Search(context.Background())
	require.NoError(t, err)
	assert.Empty(t, m.VisiblePoints())
	assert.Len(t, m.Points(), 1)
}
