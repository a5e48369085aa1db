package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/vbonduro/floodzone/internal/domain"
)

const (
	usersPath    = "/users"
	registerPath = usersPath + "/register"
	loginPath    = usersPath + "/login"
)

// transport is the subset of api.Client the service facades require.
type transport interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// tokenWriter is the subset of store.TokenStore that UserService requires.
type tokenWriter interface {
	SetToken(ctx context.Context, token string) error
	RemoveToken(ctx context.Context) error
}

type UserService struct {
	api    transport
	tokens tokenWriter
	logger *slog.Logger
}

func NewUserService(api transport, tokens tokenWriter, logger *slog.Logger) *UserService {
	return &UserService{api: api, tokens: tokens, logger: logger}
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type Registration struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
	Name     string `json:"nome,omitempty"`
}

// AuthResult is the login payload. Register may also carry a token.
type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register creates an account. Backends answer either with the bare user or
// with {token, user}; both shapes are accepted.
func (s *UserService) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	var raw json.RawMessage
	if err := s.api.Post(ctx, registerPath, reg, &raw); err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	var res AuthResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("failed to decode registration: %w", err)
	}
	if res.User == nil {
		var user domain.User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, fmt.Errorf("failed to decode registered user: %w", err)
		}
		res.User = &user
	}
	if res.Token != "" {
		if err := s.tokens.SetToken(ctx, res.Token); err != nil {
			return nil, err
		}
	}
	s.logger.Info("user registered", "user_id", res.User.ID)
	return &res, nil
}

// Login authenticates and persists the returned token.
func (s *UserService) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	var res AuthResult
	if err := s.api.Post(ctx, loginPath, creds, &res); err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	if res.User == nil {
		return nil, fmt.Errorf("failed to login: response has no user")
	}
	if res.Token != "" {
		if err := s.tokens.SetToken(ctx, res.Token); err != nil {
			return nil, err
		}
	}
	s.logger.Info("user logged in", "user_id", res.User.ID)
	return &res, nil
}

// Logout drops the stored token. The backend has no logout endpoint.
func (s *UserService) Logout(ctx context.Context) error {
	return s.tokens.RemoveToken(ctx)
}

// CurrentUser fetches the profile of the bearer-authenticated caller.
func (s *UserService) CurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := s.api.Get(ctx, usersPath, nil, &user); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
