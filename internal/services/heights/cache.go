// Package heights time-caches the engine's reported chain height so every
// reconciliation pass does not pay for an `info` round trip.
package heights

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/z-bitcoinz/blackamber/internal/lightwallet"
)

const defaultTTL = 15 * time.Second

// source is the slice of the engine client the cache needs. The cheap
// `height` command is preferred; `info` is the fallback for engine versions
// that do not implement it.
type source interface {
	Height(ctx context.Context) (uint64, error)
	Info(ctx context.Context) (lightwallet.NodeInfo, error)
}

// Cache fetches and caches the chain height. On fetch failure it serves the
// last known value rather than zero, so confirmation math degrades instead of
// collapsing.
type Cache struct {
	src source
	ttl time.Duration
	l   *zap.Logger
	now func() time.Time

	mu        sync.Mutex
	height    uint64
	fetchedAt time.Time
}

// NewCache creates a height cache over the engine client. A zero ttl uses the
// default.
func NewCache(src source, ttl time.Duration, l *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{src: src, ttl: ttl, l: l, now: time.Now}
}

// Height returns the chain height, refreshing when the cached value is older
// than the TTL. Returns 0 only when no height was ever fetched.
func (c *Cache) Height(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.height > 0 && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.height, nil
	}

	h, err := c.src.Height(ctx)
	if err != nil || h == 0 {
		if info, infoErr := c.src.Info(ctx); infoErr == nil && info.Height > 0 {
			h, err = info.Height, nil
		}
	}
	if err != nil || h == 0 {
		if c.height > 0 {
			c.l.Debug("height fetch failed, serving cached value",
				zap.Uint64("height", c.height), zap.Error(err))
			return c.height, nil
		}
		if err == nil {
			err = errors.New("engine reported zero height")
		}
		return 0, errors.Wrap(err, "fetch chain height")
	}

	c.height = h
	c.fetchedAt = c.now()
	return h, nil
}

// Invalidate drops the cached value so the next call refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchedAt = time.Time{}
	c.height = 0
}
