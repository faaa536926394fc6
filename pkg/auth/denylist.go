package auth

import (
	"context"
	"time"
)

const denylistPrefix = "fern:auth:denylist:"

// KeyStore is the subset of the Redis client the denylist needs.
type KeyStore interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Denylist records revoked token ids until the token would have expired anyway.
type Denylist struct {
	store KeyStore
}

func NewDenylist(store KeyStore) *Denylist {
	return &Denylist{store: store}
}

// Revoke denies tokenID for ttl. Tokens that already expired are not stored.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return d.store.Set(ctx, denylistPrefix+tokenID, "1", ttl)
}

// IsRevoked reports whether tokenID was revoked.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	return d.store.Exists(ctx, denylistPrefix+tokenID)
}
