// Package pending tracks change expected back from the wallet's own sends.
// The engine never reports "your change is on its way", so the only way to
// know is to measure the balance drop around a send and subtract the amount
// deliberately sent. Entries are diagnostic: the balance reconciler
// recomputes its numbers from raw snapshots every pass and never reads them.
package pending

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/z-bitcoinz/blackamber/internal/domain"
)

const (
	// deltas inside the fee band are fee noise, not change. 0.001 coin
	// covers the default fee with headroom.
	changeEpsilon = domain.Amount(100_000)

	// entries this old are dropped even if never observed confirming.
	defaultEntryTimeout = 2 * time.Hour

	// one confirmation retires an entry. This matches the transparent spend
	// policy; shielded change actually needs more confirmations before it is
	// spendable, which this tracker does not yet model.
	retireConfirmations = 1
)

// Tracker records pending change per outgoing transaction.
type Tracker struct {
	l       *zap.Logger
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]domain.PendingChange
}

// NewTracker creates an empty tracker. A zero timeout uses the default.
func NewTracker(timeout time.Duration, l *zap.Logger) *Tracker {
	if timeout <= 0 {
		timeout = defaultEntryTimeout
	}
	return &Tracker{
		l:       l,
		timeout: timeout,
		now:     time.Now,
		entries: make(map[string]domain.PendingChange),
	}
}

// RecordSend computes the change implied by the balance delta around a send
// and records it when it exceeds the fee-noise epsilon. A fee-only delta
// records nothing.
func (t *Tracker) RecordSend(txid string, amountSent, balanceBefore, balanceAfter domain.Amount) {
	change := balanceBefore - balanceAfter - amountSent
	if change <= changeEpsilon {
		t.l.Debug("no measurable change for send",
			zap.String("txid", txid),
			zap.String("delta", change.String()))
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[txid] = domain.PendingChange{
		TxID:       txid,
		SentAt:     t.now(),
		TotalSpent: balanceBefore - balanceAfter,
		Change:     change,
	}

	t.l.Info("recorded pending change",
		zap.String("txid", txid),
		zap.String("change", change.String()))
}

// Retire drops entries whose transaction now has enough confirmations, plus
// anything older than the defensive timeout. Called once per reconciliation
// pass, after both reconcilers finished.
func (t *Tracker) Retire(txs []domain.Transaction) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tx := range txs {
		entry, ok := t.entries[tx.TxID]
		if !ok {
			continue
		}
		if tx.Confirmations >= retireConfirmations {
			delete(t.entries, tx.TxID)
			t.l.Debug("pending change confirmed",
				zap.String("txid", entry.TxID),
				zap.String("change", entry.Change.String()))
		}
	}

	cutoff := t.now().Add(-t.timeout)
	for txid, entry := range t.entries {
		if entry.SentAt.Before(cutoff) {
			delete(t.entries, txid)
			t.l.Warn("pending change entry expired unconfirmed",
				zap.String("txid", txid))
		}
	}
}

// Entries returns a copy of the live entries.
func (t *Tracker) Entries() []domain.PendingChange {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.PendingChange, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, entry)
	}
	return out
}
