package lightwallet

import (
	"strings"

	"github.com/pkg/errors"
)

// Sentinel errors for the closed set of user-facing failure categories.
// Background reconciliation never surfaces these; only user-initiated actions
// (send, address generation) do.
var (
	ErrTimeout             = errors.New("wallet engine timed out")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInvalidMemo         = errors.New("invalid memo")
	ErrNotSynced           = errors.New("wallet not fully synced")
)

// EngineError is a structurally valid response carrying a remote failure,
// i.e. the `{"error": "..."}` payload shape.
type EngineError struct {
	Command string
	Message string
}

func (e *EngineError) Error() string {
	return "engine error on " + e.Command + ": " + e.Message
}

// classifyActionError maps the engine's free-text failure message onto one of
// the user-facing categories. Unmatched messages pass through unchanged.
func classifyActionError(err error) error {
	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		return err
	}

	msg := strings.ToLower(engineErr.Message)
	switch {
	case strings.Contains(msg, "insufficient"):
		return errors.Wrap(ErrInsufficientBalance, engineErr.Message)
	case strings.Contains(msg, "memo"):
		return errors.Wrap(ErrInvalidMemo, engineErr.Message)
	case strings.Contains(msg, "address"):
		return errors.Wrap(ErrInvalidAddress, engineErr.Message)
	case strings.Contains(msg, "not synced") || strings.Contains(msg, "syncing"):
		return errors.Wrap(ErrNotSynced, engineErr.Message)
	default:
		return err
	}
}
