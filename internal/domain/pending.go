package domain

import "time"

// PendingChange tracks change expected back from one outgoing transaction.
// Entries live in memory only; they are diagnostic, never a balance source.
type PendingChange struct {
	TxID       string
	SentAt     time.Time
	TotalSpent Amount
	Change     Amount
}
