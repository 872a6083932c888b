package domain

// SyncStatus is the normalized view of the engine's synchronization progress.
// The engine reports it either as JSON or as a free-text line; the sync
// monitor owns both parsers.
type SyncStatus struct {
	InProgress    bool
	SyncedBlocks  uint64
	TotalBlocks   uint64
	BatchNum      uint64
	BatchTotal    uint64
	TxnScanBlocks uint64
}

// BlocksDone reports whether block download has caught up with the tip.
func (s SyncStatus) BlocksDone() bool {
	return s.TotalBlocks > 0 && s.SyncedBlocks >= s.TotalBlocks
}
