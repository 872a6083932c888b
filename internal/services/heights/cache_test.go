package heights

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/z-bitcoinz/blackamber/internal/lightwallet"
)

type fakeSource struct {
	height      uint64
	heightErr   error
	heightCalls int
	info        lightwallet.NodeInfo
	infoErr     error
}

func (f *fakeSource) Height(ctx context.Context) (uint64, error) {
	f.heightCalls++
	return f.height, f.heightErr
}

func (f *fakeSource) Info(ctx context.Context) (lightwallet.NodeInfo, error) {
	return f.info, f.infoErr
}

func TestHeightCachedWithinTTL(t *testing.T) {
	src := &fakeSource{height: 500}
	c := NewCache(src, time.Minute, zap.NewNop())

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	h, err := c.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(500), h)

	src.height = 600
	c.now = func() time.Time { return base.Add(30 * time.Second) }

	h, err = c.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(500), h, "inside the TTL the cached value is served")
	assert.Equal(t, 1, src.heightCalls)
}

func TestHeightRefetchesPastTTL(t *testing.T) {
	src := &fakeSource{height: 500}
	c := NewCache(src, time.Minute, zap.NewNop())

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	_, err := c.Height(context.Background())
	require.NoError(t, err)

	src.height = 600
	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	h, err := c.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(600), h)
}

func TestHeightServesStaleOnFailure(t *testing.T) {
	src := &fakeSource{height: 500}
	c := NewCache(src, time.Minute, zap.NewNop())

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	_, err := c.Height(context.Background())
	require.NoError(t, err)

	src.heightErr = errors.New("engine unreachable")
	src.infoErr = errors.New("engine unreachable")
	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	h, err := c.Height(context.Background())
	require.NoError(t, err, "a stale height beats no height")
	assert.Equal(t, uint64(500), h)
}

func TestHeightFallsBackToInfo(t *testing.T) {
	src := &fakeSource{
		heightErr: errors.New("unknown command"),
		info:      lightwallet.NodeInfo{Height: 750},
	}
	c := NewCache(src, time.Minute, zap.NewNop())

	h, err := c.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(750), h)
}

func TestHeightErrorsWhenNeverFetched(t *testing.T) {
	src := &fakeSource{
		heightErr: errors.New("engine unreachable"),
		infoErr:   errors.New("engine unreachable"),
	}
	c := NewCache(src, time.Minute, zap.NewNop())

	h, err := c.Height(context.Background())
	assert.Error(t, err)
	assert.Zero(t, h)
}
