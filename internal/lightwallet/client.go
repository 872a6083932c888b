// Package lightwallet is the typed boundary over the external wallet engine's
// stringly `(command, args) -> JSON string` interface. Reconciliation code
// never parses engine strings outside this package.
package lightwallet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/z-bitcoinz/blackamber/internal/domain"
)

const (
	defaultCommandTimeout = 10 * time.Second
	// sync walks the chain and legitimately runs far longer than any other
	// command.
	defaultSyncTimeout = 5 * time.Minute

	maxMemoBytes = 512
)

// Executor is the opaque command-execution boundary to the native engine.
// Implementations must honor ctx cancellation.
type Executor interface {
	Execute(ctx context.Context, command, args string) (string, error)
}

// Client wraps an Executor with one typed method per engine command, a
// per-call timeout, and uniform `{"error": ...}` payload detection.
type Client struct {
	exec        Executor
	timeout     time.Duration
	syncTimeout time.Duration
	l           *zap.Logger
}

// NewClient creates a typed engine client. Zero durations fall back to
// defaults.
func NewClient(exec Executor, timeout, syncTimeout time.Duration, l *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	if syncTimeout <= 0 {
		syncTimeout = defaultSyncTimeout
	}
	return &Client{exec: exec, timeout: timeout, syncTimeout: syncTimeout, l: l}
}

// run executes one command under the client timeout and rejects error
// payloads before the caller interprets the response as success data.
func (c *Client) run(ctx context.Context, timeout time.Duration, command, args string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := c.exec.Execute(ctx, command, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", errors.Wrapf(ErrTimeout, "command %s", command)
		}
		return "", errors.Wrapf(err, "execute %s", command)
	}

	if msg, ok := errorPayload(raw); ok {
		return "", &EngineError{Command: command, Message: msg}
	}

	return raw, nil
}

// errorPayload reports whether the response is the engine's `{"error": ...}`
// shape and extracts the message.
func errorPayload(raw string) (string, bool) {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return "", false
	}
	return probe.Error, probe.Error != ""
}

// Balance fetches the raw balance snapshot.
func (c *Client) Balance(ctx context.Context) (domain.RawBalance, error) {
	raw, err := c.run(ctx, c.timeout, "balance", "")
	if err != nil {
		return domain.RawBalance{}, err
	}

	var bal domain.RawBalance
	if err := json.Unmarshal([]byte(raw), &bal); err != nil {
		return domain.RawBalance{}, errors.Wrap(err, "decode balance payload")
	}
	return bal, nil
}

// Transactions fetches the engine's full transaction list.
func (c *Client) Transactions(ctx context.Context) ([]domain.RawTransaction, error) {
	raw, err := c.run(ctx, c.timeout, "list", "")
	if err != nil {
		return nil, err
	}

	var txs []domain.RawTransaction
	if err := json.Unmarshal([]byte(raw), &txs); err != nil {
		return nil, errors.Wrap(err, "decode transaction list payload")
	}
	return txs, nil
}

// NodeInfo is the subset of the engine's `info` response we consume.
type NodeInfo struct {
	Height    uint64
	ChainName string
	Version   string
}

// heightKeys are the engine versions' known spellings of the chain height.
var heightKeys = []string{"latest_block_height", "height", "block_height", "latestBlockHeight"}

// Info fetches node info, extracting the chain height from whichever key the
// engine version uses.
func (c *Client) Info(ctx context.Context) (NodeInfo, error) {
	raw, err := c.run(ctx, c.timeout, "info", "")
	if err != nil {
		return NodeInfo{}, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return NodeInfo{}, errors.Wrap(err, "decode info payload")
	}

	info := NodeInfo{}
	for _, key := range heightKeys {
		msg, ok := payload[key]
		if !ok {
			continue
		}
		var h uint64
		if err := json.Unmarshal(msg, &h); err == nil && h > 0 {
			info.Height = h
			break
		}
	}
	if msg, ok := payload["chain_name"]; ok {
		_ = json.Unmarshal(msg, &info.ChainName)
	}
	if msg, ok := payload["version"]; ok {
		_ = json.Unmarshal(msg, &info.Version)
	}

	if info.Height == 0 {
		return info, errors.New("info payload carries no usable chain height")
	}
	return info, nil
}

// Height fetches the wallet height via the cheap `height` command.
func (c *Client) Height(ctx context.Context) (uint64, error) {
	raw, err := c.run(ctx, c.timeout, "height", "")
	if err != nil {
		return 0, err
	}

	var payload struct {
		Height uint64 `json:"height"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return 0, errors.Wrap(err, "decode height payload")
	}
	return payload.Height, nil
}

// Sync triggers a network sync. Success means the command returned before the
// sync timeout; the response body is informational only.
func (c *Client) Sync(ctx context.Context) error {
	_, err := c.run(ctx, c.syncTimeout, "sync", "")
	return err
}

// SyncStatus returns the engine's raw progress report, JSON or free text.
// Parsing belongs to the sync monitor.
func (c *Client) SyncStatus(ctx context.Context) (string, error) {
	return c.run(ctx, c.timeout, "syncstatus", "")
}

// Save forces the engine to persist wallet state to disk.
func (c *Client) Save(ctx context.Context) error {
	_, err := c.run(ctx, c.timeout, "save", "")
	return err
}

// Send submits a payment and returns the resulting txid. Failures are
// translated into the user-facing error categories.
func (c *Client) Send(ctx context.Context, address string, amount domain.Amount, memo string) (string, error) {
	if len(memo) > maxMemoBytes {
		return "", errors.Wrapf(ErrInvalidMemo, "memo is %d bytes, limit %d", len(memo), maxMemoBytes)
	}
	if amount <= 0 {
		return "", errors.Wrapf(ErrInsufficientBalance, "non-positive amount %s", amount)
	}

	args := fmt.Sprintf("%s %d %s", address, int64(amount), memo)
	raw, err := c.run(ctx, c.syncTimeout, "send", args)
	if err != nil {
		return "", classifyActionError(err)
	}

	var payload struct {
		TxID string `json:"txid"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", errors.Wrap(err, "decode send payload")
	}
	if payload.TxID == "" {
		return "", errors.New("send payload carries no txid")
	}

	c.l.Info("transaction submitted",
		zap.String("txid", payload.TxID),
		zap.String("amount", amount.Coins().String()))

	return payload.TxID, nil
}

// NewAddress asks the engine for a fresh address of the given kind
// ("t" transparent, "z" shielded).
func (c *Client) NewAddress(ctx context.Context, kind string) (string, error) {
	raw, err := c.run(ctx, c.timeout, "new", kind)
	if err != nil {
		return "", classifyActionError(err)
	}

	// the engine answers with a one-element JSON array of address strings.
	var addrs []string
	if err := json.Unmarshal([]byte(raw), &addrs); err == nil && len(addrs) > 0 {
		return addrs[0], nil
	}

	var addr string
	if err := json.Unmarshal([]byte(raw), &addr); err != nil {
		return "", errors.Wrap(err, "decode new address payload")
	}
	return addr, nil
}

// AddressMap groups the wallet's addresses by pool.
type AddressMap struct {
	Transparent []string `json:"t_addresses"`
	Shielded    []string `json:"z_addresses"`
}

// Addresses fetches all wallet addresses grouped by pool. A flat array
// response is split by prefix.
func (c *Client) Addresses(ctx context.Context) (AddressMap, error) {
	raw, err := c.run(ctx, c.timeout, "addresses", "")
	if err != nil {
		return AddressMap{}, err
	}

	var grouped AddressMap
	if err := json.Unmarshal([]byte(raw), &grouped); err == nil &&
		(len(grouped.Transparent) > 0 || len(grouped.Shielded) > 0) {
		return grouped, nil
	}

	var flat []string
	if err := json.Unmarshal([]byte(raw), &flat); err != nil {
		return AddressMap{}, errors.Wrap(err, "decode addresses payload")
	}
	for _, addr := range flat {
		if domain.PoolOfAddress(addr) == domain.PoolTransparent {
			grouped.Transparent = append(grouped.Transparent, addr)
		} else {
			grouped.Shielded = append(grouped.Shielded, addr)
		}
	}
	return grouped, nil
}
