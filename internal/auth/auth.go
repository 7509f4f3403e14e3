// Package auth issues and checks the bearer tokens used for privileged calls.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/obslog"
)

const DefaultTokenTTL = 12 * time.Hour

var ErrInvalidCredentials = errors.New("invalid credentials")

// TokenStore remembers issued tokens until they expire or are deleted.
type TokenStore interface {
	Put(ctx context.Context, token, username string, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (username string, ok bool, err error)
	Delete(ctx context.Context, token string) error
}

type Config struct {
	Username string
	Password string
	TokenTTL time.Duration
}

// Authenticator checks the single configured admin account. Every login
// issues an independent token, so several devices can be signed in at once.
type Authenticator struct {
	username string
	password string
	ttl      time.Duration
	store    TokenStore
	newToken func() string
}

func New(cfg Config, store TokenStore) *Authenticator {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		ttl:      ttl,
		store:    store,
		newToken: uuid.NewString,
	}
}

// Enabled reports whether admin credentials are configured at all.
func (a *Authenticator) Enabled() bool {
	return a != nil && a.username != "" && a.password != ""
}

func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	if !a.Enabled() {
		return "", ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !userOK || !passOK {
		obslog.L().Warn("admin_login_rejected", zap.String("username", username))
		return "", ErrInvalidCredentials
	}
	token := a.newToken()
	if err := a.store.Put(ctx, token, a.username, a.ttl); err != nil {
		return "", err
	}
	obslog.L().Info("admin_login", zap.String("username", a.username), zap.Duration("ttl", a.ttl))
	return token, nil
}

// Validate reports whether token was issued and has not expired or been
// revoked. Store failures count as invalid.
func (a *Authenticator) Validate(ctx context.Context, token string) bool {
	token = strings.TrimSpace(token)
	if a == nil || token == "" {
		return false
	}
	_, ok, err := a.store.Lookup(ctx, token)
	if err != nil {
		obslog.L().Warn("admin_token_lookup_failed", zap.Error(err))
		return false
	}
	return ok
}

// Logout revokes token. Unknown tokens are ignored.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return a.store.Delete(ctx, token)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
