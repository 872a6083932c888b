package domain

import (
	"strings"
	"time"
)

// Direction tells whether the wallet sent or received a transaction.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// OutgoingMetadata is attached by the engine to transactions the wallet
// itself sent. Its presence is the only reliable sent/received signal.
type OutgoingMetadata struct {
	Address string `json:"address"`
	Value   Amount `json:"value"`
	Memo    string `json:"memo"`
}

// RawTransaction is one entry of the engine's `list` response.
// A zero or absent block height means the transaction is still in the mempool.
type RawTransaction struct {
	TxID             string             `json:"txid"`
	Amount           Amount             `json:"amount"`
	Unconfirmed      bool               `json:"unconfirmed"`
	BlockHeight      uint64             `json:"block_height"`
	Address          string             `json:"address"`
	OutgoingMetadata []OutgoingMetadata `json:"outgoing_metadata"`
	Memo             string             `json:"memo"`
	Datetime         int64              `json:"datetime"`
}

// IsUnconfirmed reports whether the record has not yet been mined.
func (t RawTransaction) IsUnconfirmed() bool {
	return t.Unconfirmed || t.BlockHeight == 0
}

// IsOutgoing reports whether the wallet is the sender.
func (t RawTransaction) IsOutgoing() bool {
	return len(t.OutgoingMetadata) > 0
}

// Transaction is the canonical persisted transaction view. It is rebuilt from
// raw records on every pass; only the memo-read flag survives overwrites.
type Transaction struct {
	TxID          string
	Direction     Direction
	Amount        Amount
	BlockHeight   uint64
	Confirmations uint64
	Address       string
	Memo          string
	MemoRead      bool
	Fee           Amount
	Timestamp     time.Time
}

// PoolOfAddress classifies an address into the transparent or shielded pool
// by prefix. Unknown prefixes default to shielded.
func PoolOfAddress(addr string) Pool {
	if strings.HasPrefix(addr, "t") {
		return PoolTransparent
	}
	return PoolShielded
}

// Pool identifies the transparent or shielded value pool.
type Pool int

const (
	PoolTransparent Pool = iota
	PoolShielded
)
