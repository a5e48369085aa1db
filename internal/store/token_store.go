package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vbonduro/floodzone/internal/domain"
)

// Keys under which the session is persisted on the device.
const (
	TokenKey = "@floodzone:token"
	UserKey  = "@floodzone:user"
)

// TokenStore persists the authentication token and the user snapshot across
// process restarts. A missing key reads as the zero value, not an error.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) Token(ctx context.Context) (string, error) {
	token, _, err := s.get(ctx, TokenKey)
	return token, err
}

func (s *TokenStore) SetToken(ctx context.Context, token string) error {
	return s.set(ctx, TokenKey, token)
}

func (s *TokenStore) RemoveToken(ctx context.Context) error {
	return s.remove(ctx, TokenKey)
}

func (s *TokenStore) User(ctx context.Context) (*domain.User, error) {
	raw, ok, err := s.get(ctx, UserKey)
	if err != nil || !ok {
		return nil, err
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to decode stored user: %w", err)
	}
	return &user, nil
}

func (s *TokenStore) SetUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return s.remove(ctx, UserKey)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	return s.set(ctx, UserKey, string(data))
}

// Session returns both persisted keys.
func (s *TokenStore) Session(ctx context.Context) (*domain.Session, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.User(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Session{Token: token, User: user}, nil
}

// Clear removes the token and the user snapshot in one transaction.
func (s *TokenStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM kv_store WHERE key IN (?, ?)
	`, TokenKey, UserKey); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session clear: %w", err)
	}
	return nil
}

func (s *TokenStore) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv_store WHERE key = ?
	`, key).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *TokenStore) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *TokenStore) remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM kv_store WHERE key = ?
	`, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
