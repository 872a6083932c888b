// Package txstore persists the canonical transaction list in a local sqlite
// database. Records are overwritten wholesale on every reconciliation pass;
// the memo-read flag is the single field that survives overwrites, and it is
// only ever changed by an explicit user action.
package txstore

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/z-bitcoinz/blackamber/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	txid          TEXT PRIMARY KEY,
	direction     TEXT NOT NULL,
	amount        INTEGER NOT NULL,
	block_height  INTEGER,
	confirmations INTEGER NOT NULL,
	address       TEXT,
	memo          TEXT,
	memo_read     INTEGER NOT NULL DEFAULT 0,
	fee           INTEGER NOT NULL DEFAULT 0,
	timestamp     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is the sqlite-backed local transaction store.
type Store struct {
	db *sql.DB
	l  *zap.Logger
}

// Open opens (creating if needed) the transaction database at path.
func Open(path string, l *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open transaction db")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply transaction db schema")
	}

	return &Store{db: db, l: l}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertAll writes the full canonical list, last-write-wins per row except
// memo_read, which keeps its stored value. A failed row is logged and
// skipped; it never aborts the rest of the batch.
func (s *Store) UpsertAll(ctx context.Context, txs []domain.Transaction) error {
	const query = `
INSERT INTO transactions
	(txid, direction, amount, block_height, confirmations, address, memo, memo_read, fee, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(txid) DO UPDATE SET
	direction     = excluded.direction,
	amount        = excluded.amount,
	block_height  = excluded.block_height,
	confirmations = excluded.confirmations,
	address       = excluded.address,
	memo          = excluded.memo,
	fee           = excluded.fee,
	timestamp     = excluded.timestamp`

	for _, tx := range txs {
		var height any
		if tx.BlockHeight > 0 {
			height = int64(tx.BlockHeight)
		}

		_, err := s.db.ExecContext(ctx, query,
			tx.TxID, string(tx.Direction), int64(tx.Amount), height,
			int64(tx.Confirmations), tx.Address, tx.Memo, boolToInt(tx.MemoRead),
			int64(tx.Fee), tx.Timestamp.Unix())
		if err != nil {
			s.l.Warn("skipping transaction upsert",
				zap.String("txid", tx.TxID), zap.Error(err))
		}
	}

	return nil
}

// MemoReadFlags returns the persisted memo-read flag per txid.
func (s *Store) MemoReadFlags(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT txid, memo_read FROM transactions`)
	if err != nil {
		return nil, errors.Wrap(err, "query memo-read flags")
	}
	defer rows.Close()

	flags := make(map[string]bool)
	for rows.Next() {
		var txid string
		var read int
		if err := rows.Scan(&txid, &read); err != nil {
			return nil, errors.Wrap(err, "scan memo-read flag")
		}
		flags[txid] = read != 0
	}

	return flags, errors.Wrap(rows.Err(), "iterate memo-read flags")
}

// MarkMemoRead flips the memo-read flag for one transaction.
func (s *Store) MarkMemoRead(ctx context.Context, txid string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET memo_read = 1 WHERE txid = ?`, txid)
	return errors.Wrapf(err, "mark memo read for %s", txid)
}

// Transactions loads the persisted canonical list, newest first.
func (s *Store) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT txid, direction, amount, COALESCE(block_height, 0), confirmations,
       COALESCE(address, ''), COALESCE(memo, ''), memo_read, fee, timestamp
FROM transactions ORDER BY timestamp DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "query transactions")
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var (
			tx        domain.Transaction
			direction string
			amount    int64
			height    int64
			confs     int64
			read      int
			fee       int64
			ts        int64
		)
		if err := rows.Scan(&tx.TxID, &direction, &amount, &height, &confs,
			&tx.Address, &tx.Memo, &read, &fee, &ts); err != nil {
			return nil, errors.Wrap(err, "scan transaction")
		}
		tx.Direction = domain.Direction(direction)
		tx.Amount = domain.Amount(amount)
		tx.BlockHeight = uint64(height)
		tx.Confirmations = uint64(confs)
		tx.MemoRead = read != 0
		tx.Fee = domain.Amount(fee)
		tx.Timestamp = time.Unix(ts, 0).UTC()
		txs = append(txs, tx)
	}

	return txs, errors.Wrap(rows.Err(), "iterate transactions")
}

// SetSetting stores one named key/value setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return errors.Wrapf(err, "store setting %s", key)
}

// Setting returns a named setting, or "" when unset.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, errors.Wrapf(err, "load setting %s", key)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
