// Package app is the composition root: it builds one instance of every
// process-wide state object and hands out the screens that drive them.
package app

import (
	"database/sql"
	"log/slog"

	"github.com/vbonduro/floodzone/internal/api"
	"github.com/vbonduro/floodzone/internal/config"
	"github.com/vbonduro/floodzone/internal/geocode"
	"github.com/vbonduro/floodzone/internal/geocode/azure"
	"github.com/vbonduro/floodzone/internal/heatmap"
	"github.com/vbonduro/floodzone/internal/reports"
	"github.com/vbonduro/floodzone/internal/search"
	"github.com/vbonduro/floodzone/internal/service"
	"github.com/vbonduro/floodzone/internal/session"
	"github.com/vbonduro/floodzone/internal/store"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger

	Tokens    *store.TokenStore
	Client    *api.Client
	Users     *service.UserService
	ReportAPI *service.ReportService
	Geocoder  geocode.Gateway
	Location  LocationProvider
	Router    *Router

	Session *session.Session
	Reports *reports.Collection
	Heatmap *heatmap.Data
}

type Option func(*App)

// WithGateway replaces the Azure Maps gateway.
func WithGateway(g geocode.Gateway) Option {
	return func(a *App) { a.Geocoder = g }
}

// WithLocation replaces the configured device location.
func WithLocation(l LocationProvider) Option {
	return func(a *App) { a.Location = l }
}

// New wires the client stack on top of an open database.
func New(cfg *config.Config, database *sql.DB, logger *slog.Logger, opts ...Option) *App {
	a := &App{
		Config: cfg,
		Logger: logger,
		Router: NewRouter(RouteMap),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.Tokens = store.NewTokenStore(database)
	a.Client = api.NewClient(cfg.APIBaseURL, a.Tokens, logger, api.WithTimeout(cfg.HTTPTimeout))
	a.Users = service.NewUserService(a.Client, a.Tokens, logger)
	a.ReportAPI = service.NewReportService(a.Client, logger)

	if a.Geocoder == nil {
		if cfg.AzureMapsKey == "" {
			logger.Warn("AZURE_MAPS_KEY is not set, address search will fail")
		}
		a.Geocoder = azure.NewGateway(cfg.AzureMapsKey, cfg.AzureMapsURL, cfg.HTTPTimeout, logger)
	}
	if a.Location == nil {
		a.Location = NewConfigLocation(cfg)
	}

	a.Session = session.New(a.Users, a.Tokens, a.Client, a.Router, logger)
	a.Reports = reports.NewCollection(a.ReportAPI, logger)
	a.Heatmap = heatmap.NewData(a.ReportAPI, logger)
	return a
}

// NewSearchFlow returns a fresh search box. Callers must Close it.
func (a *App) NewSearchFlow() *search.Flow {
	return search.NewFlow(a.Geocoder, a.Config.SearchDebounce, a.Logger)
}

func (a *App) MapScreen() *MapScreen {
	return NewMapScreen(a.Location, a.Heatmap, a.NewSearchFlow(), a.Logger)
}

func (a *App) ReportForm() *ReportForm {
	return NewReportForm(a.NewSearchFlow(), a.Geocoder, a.Reports, a.Logger)
}

func (a *App) History() *HistoryScreen {
	return NewHistoryScreen(a.Reports)
}

func (a *App) Profile() *ProfileScreen {
	return NewProfileScreen(a.Session, a.Reports)
}
