// Package identity caches who is signed in. The snapshot is written by the
// host application after login and read here to gate checkout; token
// validity is judged locally from the JWT expiry so an expired session
// never reaches the API.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumi-glow/storefront/internal/storage"
	"github.com/lumi-glow/storefront/pkg/logger"
	"github.com/lumi-glow/storefront/pkg/types"
)

// StorageKey is the fixed key the auth snapshot lives under.
const StorageKey = "lumi_glow_auth"

// Service exposes the current session and invalidation events.
type Service struct {
	mu        sync.Mutex
	storage   storage.Storage
	log       *logger.Logger
	next      int
	listeners map[int]func()
}

// NewService builds the identity service around the given storage.
func NewService(store storage.Storage, log *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("identity storage required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		storage:   store,
		log:       log,
		listeners: make(map[int]func()),
	}, nil
}

// Current returns the signed-in snapshot, or nil when nobody is signed in.
// Unreadable or corrupt state and expired tokens all count as logged out.
func (s *Service) Current(ctx context.Context) *types.AuthSnapshot {
	raw, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		s.log.Warn(ctx, "auth storage unreadable, treating as logged out", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	var snap types.AuthSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.log.Warn(ctx, "persisted auth corrupt, treating as logged out", err)
		return nil
	}
	if snap.AccessToken == "" || tokenExpired(snap.AccessToken) {
		return nil
	}
	return &snap
}

// Token implements the access-token source for the commerce client. The
// request context flows through to the storage read.
func (s *Service) Token(ctx context.Context) string {
	snap := s.Current(ctx)
	if snap == nil {
		return ""
	}
	return snap.AccessToken
}

// Save persists the snapshot, stamping when it was taken.
func (s *Service) Save(ctx context.Context, snap types.AuthSnapshot) error {
	snap.SavedAt = time.Now().UTC()
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode auth snapshot: %w", err)
	}
	return s.storage.Set(ctx, StorageKey, raw)
}

// Invalidate drops the snapshot and fires every invalidation listener.
// Called when the backend answers 401, so the rest of the app can bail out
// of checkout.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.storage.Delete(ctx, StorageKey); err != nil {
		s.log.Warn(ctx, "clear auth snapshot", err)
	}

	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnInvalidated registers a session-invalidated listener; the returned
// function removes it.
func (s *Service) OnInvalidated(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// tokenExpired reads the token's exp claim without verifying the
// signature; verification is the backend's job. Opaque tokens that do not
// parse as JWTs are left to the backend too.
func tokenExpired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
