package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	headroom decimal.Decimal
	err      error
	calls    int
}

func (s *countingSource) Headroom(context.Context, string) (decimal.Decimal, error) {
	s.calls++
	return s.headroom, s.err
}

type mapCache struct {
	values  map[string]string
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string]string)}
}

func (c *mapCache) Get(_ context.Context, id string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.values[id]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, id, headroom string, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.values[id] = headroom
	c.lastTTL = ttl
	return nil
}

func TestCachedCapSource_ReadThrough(t *testing.T) {
	src := &countingSource{headroom: decimal.NewFromInt(120)}
	cache := newMapCache()
	cs := NewCachedCapSource(src, cache, 30*time.Second, discard)

	got, err := cs.Headroom(context.Background(), "team-a")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(120).Equal(got))
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "120", cache.values["team-a"])
	assert.Equal(t, 30*time.Second, cache.lastTTL)

	// Second lookup is served from the cache.
	got, err = cs.Headroom(context.Background(), "team-a")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(120).Equal(got))
	assert.Equal(t, 1, src.calls)
}

func TestCachedCapSource_CacheFailuresFallThrough(t *testing.T) {
	src := &countingSource{headroom: decimal.NewFromInt(80)}
	cache := newMapCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	cs := NewCachedCapSource(src, cache, time.Minute, discard)

	got, err := cs.Headroom(context.Background(), "team-a")

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(got))
	assert.Equal(t, 1, src.calls)
}

func TestCachedCapSource_UnparseableCachedValue(t *testing.T) {
	src := &countingSource{headroom: decimal.NewFromInt(55)}
	cache := newMapCache()
	cache.values["team-a"] = "not-a-number"
	cs := NewCachedCapSource(src, cache, time.Minute, discard)

	got, err := cs.Headroom(context.Background(), "team-a")

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(55).Equal(got))
	assert.Equal(t, 1, src.calls)
	// The bad entry is overwritten with the fresh value.
	assert.Equal(t, "55", cache.values["team-a"])
}

func TestCachedCapSource_SourceErrorSurfaces(t *testing.T) {
	srcErr := errors.New("feed timeout")
	cs := NewCachedCapSource(&countingSource{err: srcErr}, newMapCache(), time.Minute, discard)

	_, err := cs.Headroom(context.Background(), "team-a")

	assert.ErrorIs(t, err, srcErr)
}
