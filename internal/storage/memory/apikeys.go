package memory

import (
	"context"
	"strings"

	"github.com/xenking/pos-till/internal/domain/auth"
)

var _ auth.Repository = (*APIKeys)(nil)

// APIKeys holds API keys configured as hashes.
type APIKeys struct {
	byHash map[string]*auth.Key
}

// NewAPIKeys indexes keys by hash.
func NewAPIKeys(keys []auth.Key) *APIKeys {
	r := &APIKeys{byHash: make(map[string]*auth.Key, len(keys))}
	for i := range keys {
		k := keys[i]
		k.Hash = strings.ToLower(k.Hash)
		r.byHash[k.Hash] = &k
	}
	return r
}

// FindByHash returns the key with hash, or nil.
func (r *APIKeys) FindByHash(_ context.Context, hash string) (*auth.Key, error) {
	k, ok := r.byHash[hash]
	if !ok {
		return nil, nil
	}
	cp := *k
	return &cp, nil
}
