package txstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/z-bitcoinz/blackamber/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "transactions.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := []domain.Transaction{
		{
			TxID:          "aaa",
			Direction:     domain.DirectionSent,
			Amount:        -150_000_000,
			BlockHeight:   900,
			Confirmations: 101,
			Address:       "t1dest",
			Memo:          "rent",
			Fee:           10_000,
			Timestamp:     time.Unix(1700000100, 0).UTC(),
		},
		{
			TxID:          "bbb",
			Direction:     domain.DirectionReceived,
			Amount:        200_000_000,
			Confirmations: 0,
			Address:       "zsmine",
			Timestamp:     time.Unix(1700000000, 0).UTC(),
		},
	}
	require.NoError(t, s.UpsertAll(ctx, want))

	got, err := s.Transactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUpsertPreservesMemoReadFlag(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx := domain.Transaction{
		TxID:      "memo-tx",
		Direction: domain.DirectionReceived,
		Amount:    100,
		Memo:      "hello",
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, s.UpsertAll(ctx, []domain.Transaction{tx}))
	require.NoError(t, s.MarkMemoRead(ctx, "memo-tx"))

	// a reconciliation pass rewrites the row with MemoRead unset.
	tx.Confirmations = 3
	require.NoError(t, s.UpsertAll(ctx, []domain.Transaction{tx}))

	flags, err := s.MemoReadFlags(ctx)
	require.NoError(t, err)
	assert.True(t, flags["memo-tx"], "the read flag must survive the overwrite")

	got, err := s.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(3), got[0].Confirmations, "the rest of the row still updates")
}

func TestTransactionsOrderedNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAll(ctx, []domain.Transaction{
		{TxID: "old", Direction: domain.DirectionReceived, Timestamp: time.Unix(1000, 0).UTC()},
		{TxID: "new", Direction: domain.DirectionReceived, Timestamp: time.Unix(3000, 0).UTC()},
		{TxID: "mid", Direction: domain.DirectionReceived, Timestamp: time.Unix(2000, 0).UTC()},
	}))

	got, err := s.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].TxID)
	assert.Equal(t, "mid", got[1].TxID)
	assert.Equal(t, "old", got[2].TxID)
}

func TestMarkMemoReadUnknownTxidIsNoop(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.MarkMemoRead(context.Background(), "missing"))
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.Setting(ctx, "last_height")
	require.NoError(t, err)
	assert.Empty(t, got, "unset setting reads as empty")

	require.NoError(t, s.SetSetting(ctx, "last_height", "1500"))
	require.NoError(t, s.SetSetting(ctx, "last_height", "1600"))

	got, err = s.Setting(ctx, "last_height")
	require.NoError(t, err)
	assert.Equal(t, "1600", got)
}
