// Package history converts raw engine transaction records into the canonical
// persisted transaction list: direction, confirmation counts against the
// current chain height, and the locally-remembered memo-read flags merged
// back in before every overwrite.
package history

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/z-bitcoinz/blackamber/internal/domain"
)

// defaultFee is assumed for sent transactions whose fee cannot be derived
// from outgoing metadata.
const defaultFee = domain.Amount(10_000)

type engineClient interface {
	Transactions(ctx context.Context) ([]domain.RawTransaction, error)
}

type heightSource interface {
	Height(ctx context.Context) (uint64, error)
}

type transactionStore interface {
	MemoReadFlags(ctx context.Context) (map[string]bool, error)
	UpsertAll(ctx context.Context, txs []domain.Transaction) error
}

// Reconciler builds and persists the canonical transaction list.
type Reconciler struct {
	client  engineClient
	heights heightSource
	store   transactionStore
	l       *zap.Logger
}

// NewReconciler creates a transaction reconciler.
func NewReconciler(client engineClient, heights heightSource, store transactionStore, l *zap.Logger) *Reconciler {
	return &Reconciler{client: client, heights: heights, store: store, l: l}
}

// Reconcile fetches the raw list, canonicalizes it, persists it, and returns
// it newest-first.
func (r *Reconciler) Reconcile(ctx context.Context) ([]domain.Transaction, error) {
	raw, err := r.client.Transactions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch raw transactions")
	}

	return r.FromSnapshot(ctx, raw)
}

// FromSnapshot canonicalizes an already-fetched raw list, persisting the
// result. Shared with the orchestrator's fingerprinted fast pass.
func (r *Reconciler) FromSnapshot(ctx context.Context, raw []domain.RawTransaction) ([]domain.Transaction, error) {
	height, err := r.heights.Height(ctx)
	if err != nil {
		// height skew degrades confirmation counts, not the whole pass.
		r.l.Warn("chain height unavailable, confirmation counts degrade to 1", zap.Error(err))
		height = 0
	}

	flags, err := r.store.MemoReadFlags(ctx)
	if err != nil {
		r.l.Warn("memo-read flags unavailable, new flags default to unread", zap.Error(err))
		flags = map[string]bool{}
	}

	txs := Canonicalize(raw, height, flags)

	if err := r.store.UpsertAll(ctx, txs); err != nil {
		return nil, errors.Wrap(err, "persist canonical transactions")
	}

	return txs, nil
}

// Canonicalize converts raw records at the given chain height, merging the
// persisted memo-read flags. The result is sorted newest-first.
func Canonicalize(raw []domain.RawTransaction, height uint64, memoRead map[string]bool) []domain.Transaction {
	txs := make([]domain.Transaction, 0, len(raw))
	for _, rec := range raw {
		txs = append(txs, canonicalize(rec, height, memoRead[rec.TxID]))
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.After(txs[j].Timestamp)
	})

	return txs
}

func canonicalize(rec domain.RawTransaction, height uint64, memoRead bool) domain.Transaction {
	tx := domain.Transaction{
		TxID:        rec.TxID,
		Amount:      rec.Amount,
		BlockHeight: rec.BlockHeight,
		Memo:        rec.Memo,
		MemoRead:    memoRead,
		Timestamp:   time.Unix(rec.Datetime, 0).UTC(),
	}

	if rec.IsOutgoing() {
		tx.Direction = domain.DirectionSent
		tx.Address = rec.OutgoingMetadata[0].Address
		if rec.OutgoingMetadata[0].Memo != "" && tx.Memo == "" {
			tx.Memo = rec.OutgoingMetadata[0].Memo
		}
		tx.Fee = estimateFee(rec)
	} else {
		tx.Direction = domain.DirectionReceived
		tx.Address = rec.Address
	}

	tx.Confirmations = confirmations(rec, height)

	return tx
}

// confirmations derives the confirmation count. Unconfirmed records get 0.
// A confirmed record never reports less than 1, even when height skew makes
// the subtraction go negative; an unusable block height means "confirmed,
// degree unknown", which is 1, not 0.
func confirmations(rec domain.RawTransaction, height uint64) uint64 {
	if rec.IsUnconfirmed() {
		return 0
	}
	if height == 0 || rec.BlockHeight > height {
		return 1
	}
	return height - rec.BlockHeight + 1
}

// estimateFee derives the fee of a sent transaction from the gap between the
// debited amount and the sum of outgoing values; when metadata carries no
// values the chain's default fee is assumed.
func estimateFee(rec domain.RawTransaction) domain.Amount {
	var sent domain.Amount
	for _, meta := range rec.OutgoingMetadata {
		sent += meta.Value
	}
	if sent <= 0 {
		return defaultFee
	}

	fee := rec.Amount.Abs() - sent
	if fee < 0 {
		return defaultFee
	}
	return fee
}
