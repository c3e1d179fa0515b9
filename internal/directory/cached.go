package directory

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lalder95/auctiond/internal/domain"
)

// CachedCapSource is a read-through cache over a CapSource. Cache failures
// are logged and fall through to the underlying source; only the source's
// own failure surfaces to the caller.
type CachedCapSource struct {
	source domain.CapSource
	cache  domain.HeadroomCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedCapSource wraps source with cache. A non-positive ttl defaults to
// one minute.
func NewCachedCapSource(source domain.CapSource, cache domain.HeadroomCache, ttl time.Duration, logger *slog.Logger) *CachedCapSource {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedCapSource{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "capsource_cache")),
	}
}

func (c *CachedCapSource) Headroom(ctx context.Context, participantID string) (decimal.Decimal, error) {
	val, ok, err := c.cache.Get(ctx, participantID)
	if err != nil {
		c.logger.Warn("headroom cache read failed",
			slog.String("participant_id", participantID),
			slog.String("error", err.Error()),
		)
	} else if ok {
		if d, perr := decimal.NewFromString(val); perr == nil {
			return d, nil
		}
		c.logger.Warn("discarding unparseable cached headroom",
			slog.String("participant_id", participantID),
			slog.String("value", val),
		)
	}

	headroom, err := c.source.Headroom(ctx, participantID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.cache.Set(ctx, participantID, headroom.String(), c.ttl); err != nil {
		c.logger.Warn("headroom cache write failed",
			slog.String("participant_id", participantID),
			slog.String("error", err.Error()),
		)
	}

	return headroom, nil
}

var _ domain.CapSource = (*CachedCapSource)(nil)
