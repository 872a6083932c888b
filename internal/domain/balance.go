package domain

// RawBalance is the engine's balance response, taken at face value.
// The engine's spendability judgment is authoritative; we never recompute it
// from transaction data.
type RawBalance struct {
	Transparent          Amount `json:"tbalance"`
	Shielded             Amount `json:"zbalance"`
	SpendableTransparent Amount `json:"spendable_tbalance"`
	SpendableShielded    Amount `json:"spendable_zbalance"`
	VerifiedTransparent  Amount `json:"verified_tbalance"`
	VerifiedShielded     Amount `json:"verified_zbalance"`
}

// Total returns the full transparent+shielded balance.
func (b RawBalance) Total() Amount {
	return b.Transparent + b.Shielded
}

// Spendable returns the engine-reported liquid balance.
func (b RawBalance) Spendable() Amount {
	return b.SpendableTransparent + b.SpendableShielded
}

// ClassifiedBalance is the locally-consistent balance view rebuilt on every
// reconciliation pass. The unconfirmed remainder (total minus spendable) is
// decomposed into genuinely incoming funds and the wallet's own returning
// change, a split the engine does not expose directly.
type ClassifiedBalance struct {
	Transparent          Amount
	Shielded             Amount
	SpendableTransparent Amount
	SpendableShielded    Amount
	VerifiedTransparent  Amount
	VerifiedShielded     Amount
	IncomingTransparent  Amount
	IncomingShielded     Amount
	ChangeTransparent    Amount
	ChangeShielded       Amount
}

// Total returns the full balance across pools.
func (b ClassifiedBalance) Total() Amount {
	return b.Transparent + b.Shielded
}

// Spendable returns the liquid balance across pools, post-clamp.
func (b ClassifiedBalance) Spendable() Amount {
	return b.SpendableTransparent + b.SpendableShielded
}

// Incoming returns third-party funds still confirming.
func (b ClassifiedBalance) Incoming() Amount {
	return b.IncomingTransparent + b.IncomingShielded
}

// Change returns the wallet's own funds on their way back.
func (b ClassifiedBalance) Change() Amount {
	return b.ChangeTransparent + b.ChangeShielded
}

// Unconfirmed returns incoming plus change, which always equals
// Total minus Spendable after reconciliation.
func (b ClassifiedBalance) Unconfirmed() Amount {
	return b.Incoming() + b.Change()
}
