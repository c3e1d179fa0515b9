package domain

import (
	"context"
	"time"
)

// RateLimiter provides distributed rate limiting for the bid endpoint.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking. The commit service uses it to
// extend its per-lot exclusion across engine instances; a single-instance
// deployment runs without one.
type LockManager interface {
	// Acquire returns an unlock function on success, or ErrLockHeld when the
	// lock is currently held by another party.
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage is a single entry read back from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus carries engine events (accepted bids, resets, lot closes) to the
// WebSocket hub, the notifier, and any other subscriber. Publish is pub/sub
// fan-out; StreamAppend/StreamRead provide a durable, replayable feed.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// HeadroomCache caches cap headroom lookups so the external accounting feed
// is not re-fetched on every bid. It is a read-through optimization only;
// when both cache and source are unavailable, bids are refused.
type HeadroomCache interface {
	Get(ctx context.Context, participantID string) (string, bool, error)
	Set(ctx context.Context, participantID, headroom string, ttl time.Duration) error
}
