// Package session holds the process-wide authentication state: the current
// user, the loading flag, and the lifecycle of the persisted token.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/vbonduro/floodzone/internal/api"
	"github.com/vbonduro/floodzone/internal/domain"
	"github.com/vbonduro/floodzone/internal/service"
)

type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// LoginRoute is where Logout navigates.
const LoginRoute = "/login"

// ErrValidation wraps input problems caught before any network call.
var ErrValidation = errors.New("invalid input")

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	namePattern  = regexp.MustCompile(`^[\p{L} ]{2,}$`)
)

// userAPI is the subset of service.UserService that Session requires.
type userAPI interface {
	Register(ctx context.Context, reg service.Registration) (*service.AuthResult, error)
	Login(ctx context.Context, creds service.Credentials) (*service.AuthResult, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// sessionStore is the subset of store.TokenStore that Session requires.
type sessionStore interface {
	Session(ctx context.Context) (*domain.Session, error)
	SetToken(ctx context.Context, token string) error
	SetUser(ctx context.Context, user *domain.User) error
	Clear(ctx context.Context) error
}

// headerSetter is the subset of api.Client that carries the in-memory
// Authorization default.
type headerSetter interface {
	SetDefaultToken(token string)
	ClearDefaultToken()
}

// Navigator moves the UI to another route.
type Navigator interface {
	Replace(route string)
}

type Session struct {
	users   userAPI
	store   sessionStore
	headers headerSetter
	nav     Navigator
	logger  *slog.Logger

	mu      sync.RWMutex
	state   State
	user    *domain.User
	loading bool
}

func New(users userAPI, store sessionStore, headers headerSetter, nav Navigator, logger *slog.Logger) *Session {
	return &Session{
		users:   users,
		store:   store,
		headers: headers,
		nav:     nav,
		logger:  logger,
		state:   StateUnknown,
		loading: true,
	}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns a copy of the current user, or nil when anonymous.
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Start restores the persisted session. It never fails: if the stored token
// cannot be validated for any reason it is purged and the session stays
// anonymous, so no later request carries it.
func (s *Session) Start(ctx context.Context) {
	defer s.setLoading(false)

	stored, err := s.store.Session(ctx)
	if err != nil {
		s.logger.Error("failed to load stored session", "error", err)
		s.set(StateAnonymous, nil)
		return
	}
	if stored.Token == "" {
		s.set(StateAnonymous, nil)
		return
	}

	s.headers.SetDefaultToken(stored.Token)
	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			s.logger.Warn("stored token rejected, clearing session", "error", err)
		} else {
			s.logger.Warn("could not validate stored token, clearing session", "error", err)
		}
		s.purge(ctx)
		s.set(StateAnonymous, nil)
		return
	}

	if err := s.store.SetUser(ctx, user); err != nil {
		s.logger.Error("failed to persist user snapshot", "error", err)
	}
	s.set(StateAuthenticated, user)
	s.logger.Info("session restored", "user_id", user.ID)
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	res, err := s.users.Login(ctx, service.Credentials{Email: email, Password: password})
	if err != nil {
		s.logger.Error("login failed", "error", err)
		return err
	}

	s.set(StateAuthenticated, res.User)
	s.headers.SetDefaultToken(res.Token)
	if err := s.store.SetUser(ctx, res.User); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}
	if err := s.store.SetToken(ctx, res.Token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

func (s *Session) Register(ctx context.Context, email, password, name string) error {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	if name != "" && !namePattern.MatchString(name) {
		return fmt.Errorf("%w: name must have at least 2 letters", ErrValidation)
	}

	s.setLoading(true)
	defer s.setLoading(false)

	res, err := s.users.Register(ctx, service.Registration{Email: email, Password: password, Name: name})
	if err != nil {
		s.logger.Error("registration failed", "error", err)
		return err
	}

	s.set(StateAuthenticated, res.User)
	if res.Token != "" {
		s.headers.SetDefaultToken(res.Token)
	}
	if err := s.store.SetUser(ctx, res.User); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}
	return nil
}

// Logout always ends anonymous and on the login route, whatever the backend says.
func (s *Session) Logout(ctx context.Context) {
	if err := s.users.Logout(ctx); err != nil {
		s.logger.Warn("logout call failed", "error", err)
	}
	s.purge(ctx)
	s.set(StateAnonymous, nil)
	if s.nav != nil {
		s.nav.Replace(LoginRoute)
	}
}

// UpdateProfile edits the local user snapshot. The backend has no endpoint
// for profile changes, so nothing is sent.
func (s *Session) UpdateProfile(ctx context.Context, email, name string) error {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: email is malformed", ErrValidation)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: name must have at least 2 letters", ErrValidation)
	}

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return fmt.Errorf("not logged in")
	}
	updated := *s.user
	updated.Email = email
	updated.Name = name
	s.user = &updated
	s.mu.Unlock()

	return s.store.SetUser(ctx, &updated)
}

func (s *Session) purge(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("failed to clear stored session", "error", err)
	}
	s.headers.ClearDefaultToken()
}

func (s *Session) set(state State, user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.user = user
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: email is malformed", ErrValidation)
	}
	return nil
}
