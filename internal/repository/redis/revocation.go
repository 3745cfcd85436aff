package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "auth:revoked:"

// RevocationList implements repository.RevocationList on Redis. Entries are
// written with a TTL matching the remaining lifetime of the revoked token,
// so the list cleans itself up.
type RevocationList struct {
	client *redis.Client
}

// NewRevocationList creates a Redis-backed revocation list.
func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{client: client}
}

// Add marks a token hash as revoked for the given duration.
func (l *RevocationList) Add(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already past its own expiry; nothing to deny.
		return nil
	}
	if err := l.client.Set(ctx, keyPrefix+tokenHash, 1, ttl).Err(); err != nil {
		return fmt.Errorf("add revocation entry: %w", err)
	}
	return nil
}

// Contains reports whether a token hash has been revoked.
func (l *RevocationList) Contains(ctx context.Context, tokenHash string) (bool, error) {
	err := l.client.Get(ctx, keyPrefix+tokenHash).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("check revocation entry: %w", err)
	}
	return true, nil
}
