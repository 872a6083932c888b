// Package balancelog keeps an append-only history of classified balances,
// one entry per reconciliation pass. It exists for diagnostics and crash
// review; reconciliation never reads it back to compute anything.
package balancelog

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/z-bitcoinz/blackamber/internal/domain"
)

const (
	defaultJournalDir   = "./wal/balance"
	journalSegmentLimit = 1000
	journalMaxSegments  = 50
	journalKeyPrefix    = "classified_balance_"
)

// Entry is one journaled reconciliation result.
type Entry struct {
	Timestamp time.Time                `json:"ts"`
	Balance   domain.ClassifiedBalance `json:"balance"`
}

// Journal persists classified balances in a WAL.
type Journal struct {
	wal *gowal.Wal
	mu  sync.Mutex
}

// NewJournal initializes a WAL-backed balance journal under dir.
func NewJournal(dir string) (*Journal, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "balance_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: false,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init balance journal WAL")
	}

	return &Journal{wal: wal}, nil
}

// Append journals one classified balance.
func (j *Journal) Append(balance domain.ClassifiedBalance, at time.Time) error {
	if j == nil || j.wal == nil {
		return errors.New("balance journal is not initialized")
	}

	payload, err := json.Marshal(Entry{Timestamp: at, Balance: balance})
	if err != nil {
		return errors.Wrap(err, "marshal balance entry")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	nextIndex := j.wal.CurrentIndex() + 1
	return j.wal.Write(nextIndex, journalKeyPrefix+at.UTC().Format(time.RFC3339Nano), payload)
}

// Entries returns every journaled balance, oldest first.
func (j *Journal) Entries() ([]Entry, error) {
	if j == nil || j.wal == nil {
		return nil, errors.New("balance journal is not initialized")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	var entries []Entry
	for msg := range j.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, journalKeyPrefix) {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(msg.Value, &entry); err != nil {
			return nil, errors.Wrap(err, "decode balance entry")
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Close closes the underlying WAL.
func (j *Journal) Close() error {
	if j == nil || j.wal == nil {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	return j.wal.Close()
}
