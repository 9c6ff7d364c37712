package auth

import (
	"context"
	"errors"

	"github.com/catcha-app/geotag/internal/state"
	"github.com/catcha-app/geotag/internal/storage"
	"github.com/catcha-app/geotag/pkg/logger"
)

// TokenStore persists the bearer token. The token is the one key stored as a
// raw string rather than JSON.
type TokenStore struct {
	store       storage.Store
	staticToken string
	log         logger.Logger
}

func NewTokenStore(store storage.Store, staticToken string, log logger.Logger) *TokenStore {
	return &TokenStore{store: store, staticToken: staticToken, log: log}
}

func (t *TokenStore) SetToken(ctx context.Context, token string) error {
	return t.store.Set(ctx, state.KeyAPIToken, token)
}

// Token returns the stored bearer token, or "" when absent or unreadable.
func (t *TokenStore) Token(ctx context.Context) string {
	token, err := t.store.Get(ctx, state.KeyAPIToken)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			t.log.Warn("token read failed", "error", err)
		}
		return ""
	}
	return token
}

func (t *TokenStore) ClearToken(ctx context.Context) error {
	return t.store.Remove(ctx, state.KeyAPIToken)
}

// Resolve returns the token to authenticate with: the stored token when one
// exists, otherwise the static token from configuration.
func (t *TokenStore) Resolve(ctx context.Context) string {
	if token := t.Token(ctx); token != "" {
		return token
	}
	return t.staticToken
}
