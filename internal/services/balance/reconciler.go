// Package balance turns a raw engine balance snapshot and a raw transaction
// list into a classified balance. The engine reports one non-decomposed
// "non-spendable" remainder; splitting it into third-party incoming funds and
// the wallet's own returning change is this package's whole job, because the
// two mean different things to the user.
package balance

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/z-bitcoinz/blackamber/internal/domain"
)

type engineClient interface {
	Balance(ctx context.Context) (domain.RawBalance, error)
	Transactions(ctx context.Context) ([]domain.RawTransaction, error)
}

type journal interface {
	Append(balance domain.ClassifiedBalance, at time.Time) error
}

// Reconciler computes classified balances.
type Reconciler struct {
	client  engineClient
	journal journal
	l       *zap.Logger
	now     func() time.Time
}

// NewReconciler creates a balance reconciler. The journal may be nil.
func NewReconciler(client engineClient, journal journal, l *zap.Logger) *Reconciler {
	return &Reconciler{client: client, journal: journal, l: l, now: time.Now}
}

// Reconcile fetches fresh snapshots and classifies them. The raw snapshot is
// ephemeral; nothing from a previous pass feeds into this one.
func (r *Reconciler) Reconcile(ctx context.Context) (domain.ClassifiedBalance, error) {
	raw, err := r.client.Balance(ctx)
	if err != nil {
		return domain.ClassifiedBalance{}, errors.Wrap(err, "fetch balance snapshot")
	}

	txs, err := r.client.Transactions(ctx)
	if err != nil {
		return domain.ClassifiedBalance{}, errors.Wrap(err, "fetch transaction snapshot")
	}

	return r.FromSnapshot(raw, txs), nil
}

// FromSnapshot classifies already-fetched snapshots and journals the result.
// The orchestrator uses this to share one fetch between fingerprinting and
// reconciliation.
func (r *Reconciler) FromSnapshot(raw domain.RawBalance, txs []domain.RawTransaction) domain.ClassifiedBalance {
	classified := Classify(raw, txs)

	if r.journal != nil {
		if err := r.journal.Append(classified, r.now()); err != nil {
			r.l.Warn("failed to journal classified balance", zap.Error(err))
		}
	}

	return classified
}

// Classify decomposes one raw snapshot against one raw transaction list.
//
// The engine's spendability judgment is trusted as-is. The remainder
// (total - spendable) is split into pure incoming (unconfirmed transactions
// with no outgoing metadata) and change (everything else). Spendable is
// clamped so it can never exceed total, which upstream rounding or timing
// skew can transiently produce.
func Classify(raw domain.RawBalance, txs []domain.RawTransaction) domain.ClassifiedBalance {
	out := domain.ClassifiedBalance{
		Transparent:          raw.Transparent,
		Shielded:             raw.Shielded,
		SpendableTransparent: raw.SpendableTransparent,
		SpendableShielded:    raw.SpendableShielded,
		VerifiedTransparent:  raw.VerifiedTransparent,
		VerifiedShielded:     raw.VerifiedShielded,
	}

	clampSpendable(&out)

	total := out.Total()
	nonSpendable := total - out.Spendable()
	if nonSpendable <= 0 {
		return out
	}

	// money genuinely on its way in: unconfirmed and not ours.
	var incomingT, incomingZ domain.Amount
	// our own unconfirmed spends, used to attribute change to a pool.
	var outgoingT, outgoingZ domain.Amount
	for _, tx := range txs {
		if !tx.IsUnconfirmed() {
			continue
		}
		amount := tx.Amount.Abs()
		if tx.IsOutgoing() {
			if domain.PoolOfAddress(tx.Address) == domain.PoolTransparent && tx.Address != "" {
				outgoingT += amount
			} else {
				outgoingZ += amount
			}
			continue
		}
		if domain.PoolOfAddress(tx.Address) == domain.PoolTransparent && tx.Address != "" {
			incomingT += amount
		} else {
			incomingZ += amount
		}
	}

	change := nonSpendable - (incomingT + incomingZ)
	if change < 0 {
		// every non-spendable unit is actually incoming; reassign the whole
		// remainder proportionally by the total's pool ratio.
		change = 0
		incomingT, incomingZ = splitByRatio(nonSpendable, out.Transparent, out.Shielded)
	} else if change > 0 {
		if outgoingT+outgoingZ > 0 {
			// change returns toward the pools our own unconfirmed spends
			// touched; unknown destinations count as shielded.
			out.ChangeTransparent, out.ChangeShielded = splitByRatio(change, outgoingT, outgoingZ)
		} else {
			out.ChangeTransparent, out.ChangeShielded = splitByRatio(change, out.Transparent, out.Shielded)
		}
	}

	out.IncomingTransparent = incomingT
	out.IncomingShielded = incomingZ

	return out
}

// clampSpendable scales spendable components down proportionally so that
// spendable never exceeds total.
func clampSpendable(b *domain.ClassifiedBalance) {
	total := b.Total()
	spendable := b.Spendable()
	if spendable <= total {
		return
	}
	if total <= 0 {
		b.SpendableTransparent = 0
		b.SpendableShielded = 0
		return
	}

	b.SpendableTransparent, b.SpendableShielded = splitByRatio(total, b.SpendableTransparent, b.SpendableShielded)
}

// splitByRatio distributes amount across two pools proportionally to the
// weights; the remainder after truncation lands in the second pool. Zero
// weights put everything in the second (shielded) pool. decimal keeps the
// intermediate product exact where int64 would overflow.
func splitByRatio(amount, weightA, weightB domain.Amount) (domain.Amount, domain.Amount) {
	sum := weightA + weightB
	if sum <= 0 {
		return 0, amount
	}
	a := domain.Amount(decimal.NewFromInt(int64(amount)).
		Mul(decimal.NewFromInt(int64(weightA))).
		Div(decimal.NewFromInt(int64(sum))).
		IntPart())
	return a, amount - a
}
