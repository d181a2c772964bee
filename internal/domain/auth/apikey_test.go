package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapRepo map[string]*Key

func (m mapRepo) FindByHash(_ context.Context, hash string) (*Key, error) {
	return m[hash], nil
}

type looseRepo struct{ key *Key }

func (r looseRepo) FindByHash(context.Context, string) (*Key, error) {
	return r.key, nil
}

type failingRepo struct{}

func (failingRepo) FindByHash(context.Context, string) (*Key, error) {
	return nil, errors.New("connection refused")
}

func TestAuthenticate(t *testing.T) {
	pepper := []byte("pepper")
	key := &Key{ID: "k1", Hash: Hash(pepper, "till-secret"), Name: "front till", Scopes: []string{ScopeTill}}
	a := NewAuthenticator(mapRepo{key.Hash: key}, pepper)

	got, err := a.Authenticate(context.Background(), "till-secret")
	require.NoError(t, err)
	assert.Equal(t, "k1", got.ID)

	_, err = a.Authenticate(context.Background(), "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = a.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate_DifferentPepper(t *testing.T) {
	key := &Key{ID: "k1", Hash: Hash([]byte("a"), "secret")}
	a := NewAuthenticator(mapRepo{key.Hash: key}, []byte("b"))

	_, err := a.Authenticate(context.Background(), "secret")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate_StoredHashMismatch(t *testing.T) {
	a := NewAuthenticator(looseRepo{key: &Key{ID: "k1", Hash: strings.Repeat("0", 64)}}, []byte("p"))

	_, err := a.Authenticate(context.Background(), "secret")
	require.ErrorIs(t, err, ErrUnauthorized)

	a = NewAuthenticator(looseRepo{key: &Key{ID: "k1", Hash: "not-hex"}}, []byte("p"))
	_, err = a.Authenticate(context.Background(), "secret")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate_RepositoryError(t *testing.T) {
	a := NewAuthenticator(failingRepo{}, []byte("p"))

	_, err := a.Authenticate(context.Background(), "secret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestKey_HasScope(t *testing.T) {
	till := &Key{Scopes: []string{ScopeTill}}
	admin := &Key{Scopes: []string{ScopeAdmin}}

	assert.True(t, till.HasScope(ScopeTill))
	assert.False(t, till.HasScope(ScopeAdmin))
	assert.True(t, admin.HasScope(ScopeTill))
	assert.True(t, admin.HasScope(ScopeAdmin))
}
