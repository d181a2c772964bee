package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for unknown, inactive or malformed keys.
var ErrUnauthorized = errors.New("unauthorized")

// Scopes granted to till API keys.
const (
	// ScopeTill allows cart, checkout and device operations.
	ScopeTill = "till"
	// ScopeAdmin additionally allows changing gateway settings.
	ScopeAdmin = "admin"
)

// Key is a stored API key. Hash is the hex HMAC-SHA256 of the raw key.
type Key struct {
	ID     string
	Hash   string
	Name   string
	Scopes []string
}

// HasScope reports whether the key grants scope. Admin keys grant every scope.
func (k *Key) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope) || slices.Contains(k.Scopes, ScopeAdmin)
}

// Repository looks up active API keys by hash. It returns (nil, nil) when no
// key matches.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Key, error)
}

// Hash returns the hex HMAC-SHA256 of raw under pepper.
func Hash(pepper []byte, raw string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticator validates raw API keys against a Repository.
type Authenticator struct {
	keys   Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Authenticate returns the key matching raw, or ErrUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (*Key, error) {
	if raw == "" {
		return nil, ErrUnauthorized
	}
	mac := hmac.New(sha256.New, a.pepper)
	mac.Write([]byte(raw))
	hash := mac.Sum(nil)

	key, err := a.keys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return nil, errors.Wrap(err, "find api key")
	}
	if key == nil {
		return nil, ErrUnauthorized
	}

	// The stored hash must match even if the repository matched loosely.
	stored, err := hex.DecodeString(key.Hash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, ErrUnauthorized
	}
	return key, nil
}
