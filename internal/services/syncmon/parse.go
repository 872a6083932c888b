package syncmon

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/z-bitcoinz/blackamber/internal/domain"
)

// jsonStatus is the engine's structured progress shape. Field names vary a
// little across engine versions, hence the aliases.
type jsonStatus struct {
	InProgress    *bool  `json:"in_progress"`
	Syncing       *bool  `json:"syncing"`
	SyncedBlocks  uint64 `json:"synced_blocks"`
	TotalBlocks   uint64 `json:"total_blocks"`
	BatchNum      uint64 `json:"batch_num"`
	BatchTotal    uint64 `json:"batch_total"`
	TxnScanBlocks uint64 `json:"txn_scan_blocks"`
}

// freeTextPattern matches the engine's legacy progress line:
// "id: N, batch: a/b, blocks: c/d".
var freeTextPattern = regexp.MustCompile(`id:\s*(\d+),\s*batch:\s*(\d+)/(\d+),\s*blocks:\s*(\d+)/(\d+)`)

// ParseStatus parses either status form into the normalized view. The
// in-progress flag is derived when not explicit: total known and synced short
// of it, or a batch sequence still running.
func ParseStatus(raw string) (domain.SyncStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.SyncStatus{}, errors.New("empty sync status")
	}

	if strings.HasPrefix(raw, "{") {
		return parseJSON(raw)
	}
	return parseFreeText(raw)
}

func parseJSON(raw string) (domain.SyncStatus, error) {
	var payload jsonStatus
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.SyncStatus{}, errors.Wrap(err, "decode sync status json")
	}

	status := domain.SyncStatus{
		SyncedBlocks:  payload.SyncedBlocks,
		TotalBlocks:   payload.TotalBlocks,
		BatchNum:      payload.BatchNum,
		BatchTotal:    payload.BatchTotal,
		TxnScanBlocks: payload.TxnScanBlocks,
	}

	switch {
	case payload.InProgress != nil:
		status.InProgress = *payload.InProgress
	case payload.Syncing != nil:
		status.InProgress = *payload.Syncing
	default:
		status.InProgress = derivedInProgress(status)
	}

	return status, nil
}

func parseFreeText(raw string) (domain.SyncStatus, error) {
	match := freeTextPattern.FindStringSubmatch(raw)
	if match == nil {
		return domain.SyncStatus{}, errors.Errorf("unrecognized sync status form: %q", raw)
	}

	fields := make([]uint64, 0, 5)
	for _, part := range match[1:] {
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return domain.SyncStatus{}, errors.Wrap(err, "parse sync status number")
		}
		fields = append(fields, v)
	}

	status := domain.SyncStatus{
		BatchNum:     fields[1],
		BatchTotal:   fields[2],
		SyncedBlocks: fields[3],
		TotalBlocks:  fields[4],
	}
	status.InProgress = derivedInProgress(status)

	return status, nil
}

// derivedInProgress infers the in-progress flag from counters when the engine
// does not state it.
func derivedInProgress(s domain.SyncStatus) bool {
	if s.TotalBlocks > 0 && s.SyncedBlocks < s.TotalBlocks {
		return true
	}
	return s.BatchTotal > 0 && s.BatchNum < s.BatchTotal
}
