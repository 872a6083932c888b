// Package syncmon normalizes the engine's synchronization progress reports
// and recovers from its stuck-finalization failure mode: block download
// completes but the transaction index never converges, leaving the wallet
// perpetually "almost synced". The recovery is a forced save.
package syncmon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/z-bitcoinz/blackamber/internal/domain"
)

const (
	// how long blocks-done-but-scan-lagging must persist before we force a
	// save.
	defaultStallThreshold = 30 * time.Second

	// a scan counter further behind than this is a normal mid-sync state,
	// not a finalization stall.
	maxStallGap = 100
)

type engineClient interface {
	SyncStatus(ctx context.Context) (string, error)
	Save(ctx context.Context) error
}

// Monitor polls and parses sync progress and applies stall recovery.
type Monitor struct {
	client    engineClient
	threshold time.Duration
	l         *zap.Logger
	now       func() time.Time

	stallSince time.Time
}

// NewMonitor creates a sync monitor. A zero threshold uses the default.
func NewMonitor(client engineClient, threshold time.Duration, l *zap.Logger) *Monitor {
	if threshold <= 0 {
		threshold = defaultStallThreshold
	}
	return &Monitor{client: client, threshold: threshold, l: l, now: time.Now}
}

// Status fetches and parses the engine's progress report. A timed-out or
// unreadable status call reports "not in progress" so the caller is never
// left waiting on an answer that will not come.
func (m *Monitor) Status(ctx context.Context) domain.SyncStatus {
	raw, err := m.client.SyncStatus(ctx)
	if err != nil {
		m.l.Debug("sync status unavailable, assuming idle", zap.Error(err))
		return domain.SyncStatus{}
	}

	status, err := ParseStatus(raw)
	if err != nil {
		m.l.Debug("unparseable sync status, assuming idle",
			zap.String("raw", raw), zap.Error(err))
		return domain.SyncStatus{}
	}

	return status
}

// Check fetches the current status and runs stall detection. When the stuck
// condition has persisted past the threshold it issues one forced save and
// resets the timer.
func (m *Monitor) Check(ctx context.Context) domain.SyncStatus {
	status := m.Status(ctx)

	if !m.isStuck(status) {
		m.stallSince = time.Time{}
		return status
	}

	now := m.now()
	if m.stallSince.IsZero() {
		m.stallSince = now
		return status
	}

	if now.Sub(m.stallSince) < m.threshold {
		return status
	}

	m.l.Warn("sync finalization stuck, forcing wallet save",
		zap.Uint64("total_blocks", status.TotalBlocks),
		zap.Uint64("txn_scan_blocks", status.TxnScanBlocks))

	if err := m.client.Save(ctx); err != nil {
		m.l.Error("forced save failed", zap.Error(err))
	}

	m.stallSince = time.Time{}

	return status
}

// isStuck reports the stuck-finalization signature: block sync complete while
// the transaction-scan counter trails by a small bounded gap.
func (m *Monitor) isStuck(s domain.SyncStatus) bool {
	if !s.BlocksDone() {
		return false
	}
	if s.TxnScanBlocks == 0 || s.TxnScanBlocks >= s.TotalBlocks {
		return false
	}
	return s.TotalBlocks-s.TxnScanBlocks <= maxStallGap
}
