// Package engine is the refresh orchestrator: it drives all reconciliation at
// two cadences, guarantees at most one pass runs at a time, and publishes
// results to the surrounding application through replaceable callback slots.
//
// The external engine offers no push mechanism, so polling with manual change
// detection is the design, not a workaround: the fast pass fetches a cheap
// fingerprint and skips deeper work when nothing moved, the slow pass
// unconditionally syncs and persists.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/z-bitcoinz/blackamber/internal/domain"
	"github.com/z-bitcoinz/blackamber/internal/lightwallet"
	"github.com/z-bitcoinz/blackamber/internal/services/balance"
	"github.com/z-bitcoinz/blackamber/internal/services/history"
	"github.com/z-bitcoinz/blackamber/internal/services/pending"
	"github.com/z-bitcoinz/blackamber/internal/services/syncmon"
	"github.com/z-bitcoinz/blackamber/pkg/retrier"
)

const (
	defaultFastInterval = 5 * time.Second
	defaultSlowInterval = 60 * time.Second
	defaultMinFastGap   = 2 * time.Second
	defaultSettleDelay  = 2 * time.Second
)

// Config holds the orchestrator cadences.
type Config struct {
	// FastInterval is the change-detection cadence.
	FastInterval time.Duration
	// SlowInterval is the full sync-and-save cadence.
	SlowInterval time.Duration
	// MinFastGap rejects a fast pass that starts too soon after the
	// previous one finished.
	MinFastGap time.Duration
	// SettleDelay is how long a send waits before measuring the post-send
	// balance.
	SettleDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.FastInterval <= 0 {
		c.FastInterval = defaultFastInterval
	}
	if c.SlowInterval <= 0 {
		c.SlowInterval = defaultSlowInterval
	}
	if c.MinFastGap <= 0 {
		c.MinFastGap = defaultMinFastGap
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = defaultSettleDelay
	}
}

// Callbacks are the observer slots the surrounding application fills in.
// A nil slot is a no-op, never an error.
type Callbacks struct {
	BalanceUpdated      func(domain.ClassifiedBalance)
	TransactionsUpdated func([]domain.Transaction)
	AddressesUpdated    func(lightwallet.AddressMap)
	InfoUpdated         func(lightwallet.NodeInfo)
}

type engineClient interface {
	Balance(ctx context.Context) (domain.RawBalance, error)
	Transactions(ctx context.Context) ([]domain.RawTransaction, error)
	Info(ctx context.Context) (lightwallet.NodeInfo, error)
	Sync(ctx context.Context) error
	Save(ctx context.Context) error
	Send(ctx context.Context, address string, amount domain.Amount, memo string) (string, error)
	NewAddress(ctx context.Context, kind string) (string, error)
	Addresses(ctx context.Context) (lightwallet.AddressMap, error)
}

// fingerprint is the cheap composite used to detect "nothing changed".
// Any of the three fields changing forces a refetch; equality is the sole
// basis for skipping, a deliberately false-negative-averse choice.
type fingerprint struct {
	topTxID      string
	roundedTotal string
	txCount      int
}

// Engine is the wallet reconciliation orchestrator. It is constructed at
// session start, run on its own goroutine, and torn down by cancelling the
// Run context; there is no ambient global instance.
type Engine struct {
	client   engineClient
	balances *balance.Reconciler
	txs      *history.Reconciler
	pending  *pending.Tracker
	sync     *syncmon.Monitor
	cfg      Config
	cb       Callbacks
	retry    *retrier.Retrier
	l        *zap.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration)

	// refresh requests from outside the loop goroutine (post-send).
	trigger chan struct{}

	// loop-goroutine state; guard flags, not locks, since one goroutine
	// owns every pass.
	fastInFlight bool
	lastFastDone time.Time
	syncing      bool
	lastSeen     fingerprint
	hasSeen      bool
}

// New assembles the orchestrator.
func New(client engineClient, balances *balance.Reconciler, txs *history.Reconciler,
	pendingTracker *pending.Tracker, syncMonitor *syncmon.Monitor, cfg Config, cb Callbacks, l *zap.Logger) *Engine {
	cfg.applyDefaults()
	return &Engine{
		client:   client,
		balances: balances,
		txs:      txs,
		pending:  pendingTracker,
		sync:     syncMonitor,
		cfg:      cfg,
		cb:       cb,
		retry:    retrier.New(retrier.WithMaxRetries(2), retrier.WithInitialInterval(500*time.Millisecond)),
		l:        l,
		now:      time.Now,
		sleep:    sleepCtx,
		trigger:  make(chan struct{}, 1),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Run drives the reconciliation loop until ctx is cancelled. A pass already
// in flight runs to completion or timeout; cancellation only stops further
// scheduling.
func (e *Engine) Run(ctx context.Context) error {
	fast := time.NewTicker(e.cfg.FastInterval)
	defer fast.Stop()
	slow := time.NewTicker(e.cfg.SlowInterval)
	defer slow.Stop()

	e.l.Info("reconciliation loop starting",
		zap.Duration("fast_interval", e.cfg.FastInterval),
		zap.Duration("slow_interval", e.cfg.SlowInterval))

	// prime the view before the first tick.
	e.slowPass(ctx)

	for {
		select {
		case <-ctx.Done():
			e.l.Info("reconciliation loop stopping")
			return ctx.Err()
		case <-fast.C:
			e.fastPass(ctx, false)
		case <-e.trigger:
			e.fastPass(ctx, true)
		case <-slow.C:
			e.slowPass(ctx)
		}
	}
}

// RequestRefresh asks the loop for an out-of-band fast pass, e.g. right after
// a send. Coalesces when one is already queued.
func (e *Engine) RequestRefresh() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// fastPass fetches the fingerprint and reconciles only when it moved.
// forced bypasses the fingerprint gate but never the re-entry guard.
func (e *Engine) fastPass(ctx context.Context, forced bool) {
	if e.fastInFlight {
		e.l.Debug("fast pass rejected: previous pass still executing")
		return
	}
	if !forced && !e.lastFastDone.IsZero() && e.now().Sub(e.lastFastDone) < e.cfg.MinFastGap {
		e.l.Debug("fast pass rejected: too soon after previous pass")
		return
	}

	e.fastInFlight = true
	defer func() {
		e.fastInFlight = false
		e.lastFastDone = e.now()
	}()

	raw, txs, err := e.fetchSnapshots(ctx)
	if err != nil {
		e.l.Warn("fingerprint fetch failed", zap.Error(err))
		return
	}

	fp := makeFingerprint(raw, txs)
	if !forced && e.hasSeen && fp == e.lastSeen {
		return
	}
	e.lastSeen = fp
	e.hasSeen = true

	e.reconcile(ctx, raw, txs)
}

// slowPass syncs against the network, refreshes everything, and persists.
func (e *Engine) slowPass(ctx context.Context) {
	if e.syncing {
		e.l.Debug("slow pass skipping sync: one already in flight")
	} else if status := e.sync.Check(ctx); status.InProgress {
		e.l.Debug("slow pass skipping sync: engine reports sync in progress",
			zap.Uint64("synced", status.SyncedBlocks),
			zap.Uint64("total", status.TotalBlocks))
	} else {
		e.syncing = true
		if err := e.client.Sync(ctx); err != nil {
			e.l.Warn("network sync failed", zap.Error(err))
		}
		e.syncing = false
	}

	raw, txs, err := e.fetchSnapshots(ctx)
	if err != nil {
		e.l.Warn("slow pass fetch failed", zap.Error(err))
		return
	}
	e.lastSeen = makeFingerprint(raw, txs)
	e.hasSeen = true
	e.reconcile(ctx, raw, txs)

	if info, err := e.client.Info(ctx); err != nil {
		e.l.Debug("info fetch failed", zap.Error(err))
	} else if e.cb.InfoUpdated != nil {
		e.cb.InfoUpdated(info)
	}

	if err := e.client.Save(ctx); err != nil {
		e.l.Warn("wallet save failed", zap.Error(err))
	}
}

func (e *Engine) fetchSnapshots(ctx context.Context) (domain.RawBalance, []domain.RawTransaction, error) {
	raw, err := e.client.Balance(ctx)
	if err != nil {
		return domain.RawBalance{}, nil, errors.Wrap(err, "fetch balance")
	}
	txs, err := e.client.Transactions(ctx)
	if err != nil {
		return domain.RawBalance{}, nil, errors.Wrap(err, "fetch transactions")
	}
	return raw, txs, nil
}

// reconcile runs the balance and transaction reconcilers on shared snapshots,
// then the pending retirement check, then the address refresh. Reconcilers
// read independent data and could run in either order; retirement must come
// after both.
func (e *Engine) reconcile(ctx context.Context, raw domain.RawBalance, txs []domain.RawTransaction) {
	classified := e.balances.FromSnapshot(raw, txs)
	if e.cb.BalanceUpdated != nil {
		e.cb.BalanceUpdated(classified)
	}

	canonical, err := e.txs.FromSnapshot(ctx, txs)
	if err != nil {
		e.l.Warn("transaction reconciliation failed", zap.Error(err))
	} else {
		if e.cb.TransactionsUpdated != nil {
			e.cb.TransactionsUpdated(canonical)
		}
		e.pending.Retire(canonical)
	}

	if addrs, err := e.client.Addresses(ctx); err != nil {
		e.l.Debug("address refresh failed", zap.Error(err))
	} else if e.cb.AddressesUpdated != nil {
		e.cb.AddressesUpdated(addrs)
	}
}

func makeFingerprint(raw domain.RawBalance, txs []domain.RawTransaction) fingerprint {
	fp := fingerprint{
		roundedTotal: raw.Total().Coins().Round(4).String(),
		txCount:      len(txs),
	}
	if len(txs) > 0 {
		fp.topTxID = txs[0].TxID
	}
	return fp
}

// Send submits a payment, measures the balance delta around it for the
// pending-change tracker, and schedules an immediate refresh. Errors come
// back already classified into user-facing categories.
func (e *Engine) Send(ctx context.Context, address string, amount domain.Amount, memo string) (string, error) {
	opID := uuid.NewString()
	l := e.l.With(zap.String("op_id", opID))

	before, err := e.client.Balance(ctx)
	if err != nil {
		return "", errors.Wrap(err, "measure pre-send balance")
	}

	// a send is never retried: an ambiguous failure may have reached the
	// network, and a retry would double-spend.
	txid, err := e.client.Send(ctx, address, amount, memo)
	if err != nil {
		l.Warn("send failed", zap.Error(err))
		return "", err
	}

	l.Info("send accepted", zap.String("txid", txid), zap.String("amount", amount.String()))

	// give the engine a moment to account for the spend before measuring.
	e.sleep(ctx, e.cfg.SettleDelay)

	if after, err := e.client.Balance(ctx); err != nil {
		l.Warn("post-send balance unavailable, skipping change tracking", zap.Error(err))
	} else {
		e.pending.RecordSend(txid, amount, before.Total(), after.Total())
	}

	e.RequestRefresh()

	return txid, nil
}

// NewAddress generates a fresh address of the given kind ("t" or "z").
// Generation is idempotent from the caller's point of view, so transient
// failures are retried.
func (e *Engine) NewAddress(ctx context.Context, kind string) (string, error) {
	return retrier.DoWithData(e.retry, ctx, func(ctx context.Context) (string, error) {
		return e.client.NewAddress(ctx, kind)
	})
}

// PendingChanges exposes the live pending-change entries for UI consumers.
func (e *Engine) PendingChanges() []domain.PendingChange {
	return e.pending.Entries()
}

// SyncStatus exposes the current normalized sync progress.
func (e *Engine) SyncStatus(ctx context.Context) domain.SyncStatus {
	return e.sync.Status(ctx)
}
