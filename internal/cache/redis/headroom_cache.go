package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lalder95/auctiond/internal/domain"
)

// HeadroomCache implements domain.HeadroomCache with simple string keys.
// Headroom values are stored as decimal strings to avoid float drift.
type HeadroomCache struct {
	rdb *redis.Client
}

// NewHeadroomCache creates a HeadroomCache backed by the given Client.
func NewHeadroomCache(c *Client) *HeadroomCache {
	return &HeadroomCache{rdb: c.Underlying()}
}

func headroomKey(participantID string) string {
	return "headroom:" + participantID
}

// Get returns the cached headroom for a participant. The second return value
// is false on a miss.
func (hc *HeadroomCache) Get(ctx context.Context, participantID string) (string, bool, error) {
	val, err := hc.rdb.Get(ctx, headroomKey(participantID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis: get headroom %s: %w", participantID, err)
	}
	return val, true, nil
}

// Set stores a participant's headroom with the given TTL.
func (hc *HeadroomCache) Set(ctx context.Context, participantID, headroom string, ttl time.Duration) error {
	if err := hc.rdb.Set(ctx, headroomKey(participantID), headroom, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set headroom %s: %w", participantID, err)
	}
	return nil
}

var _ domain.HeadroomCache = (*HeadroomCache)(nil)
