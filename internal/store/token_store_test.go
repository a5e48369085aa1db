package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/floodzone/internal/db"
	"github.com/vbonduro/floodzone/internal/domain"
)

func newTestStore(t *testing.T) *TokenStore {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return NewTokenStore(d)
}

func TestTokenStoreEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	user, err := s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestTokenStoreSetAndOverwriteToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "first"))
	require.NoError(t, s.SetToken(ctx, "second"))

	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", token)
}

func TestTokenStoreUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetUser(ctx, &domain.User{ID: 3, Email: "ana@example.com", Name: "Ana"}))

	user, err := s.User(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "Ana", user.Name)

	require.NoError(t, s.SetUser(ctx, nil))
	user, err = s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestTokenStoreRemoveTokenKeepsUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "tok"))
	require.NoError(t, s.SetUser(ctx, &domain.User{ID: 1, Email: "a@b.co"}))
	require.NoError(t, s.RemoveToken(ctx))

	sess, err := s.Session(ctx)
	require.NoError(t, err)
	assert.Empty(t, sess.Token)
	assert.NotNil(t, sess.User)
}

func TestTokenStoreClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "tok"))
	require.NoError(t, s.SetUser(ctx, &domain.User{ID: 1, Email: "a@b.co"}))
	require.NoError(t, s.Clear(ctx))

	sess, err := s.Session(ctx)
	require.NoError(t, err)
	assert.Empty(t, sess.Token)
	assert.Nil(t, sess.User)
}

func TestTokenStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floodzone.db")
	ctx := context.Background()

	d, err := db.Open(path)
	require.NoError(t, err)
	require.NoError(t, NewTokenStore(d).SetToken(ctx, "persisted"))
	require.NoError(t, d.Close())

	d, err = db.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	token, err := NewTokenStore(d).Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", token)
}

func TestTokenStoreCorruptUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.set(ctx, UserKey, "{not json"))

	_, err := s.User(ctx)
	assert.Error(t, err)
}
