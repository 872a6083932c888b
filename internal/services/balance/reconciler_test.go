package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/z-bitcoinz/blackamber/internal/domain"
)

const coin = domain.Amount(domain.UnitsPerCoin)

func TestClassifyUnconfirmedIncomingTransparent(t *testing.T) {
	raw := domain.RawBalance{
		Transparent:          5 * coin,
		SpendableTransparent: 3 * coin,
	}
	txs := []domain.RawTransaction{
		{TxID: "aa", Amount: 2 * coin, Unconfirmed: true, Address: "t1abc"},
	}

	got := Classify(raw, txs)

	assert.Equal(t, 2*coin, got.IncomingTransparent)
	assert.Equal(t, domain.Amount(0), got.IncomingShielded)
	assert.Equal(t, domain.Amount(0), got.Change())
	assert.Equal(t, 2*coin, got.Unconfirmed())
}

func TestClassifyOwnSendBecomesChange(t *testing.T) {
	raw := domain.RawBalance{
		Transparent:          5 * coin,
		SpendableTransparent: 3 * coin,
	}
	// same split, but the unconfirmed record is the wallet's own send with an
	// unknown destination: nothing is incoming, everything is change, and the
	// unknown prefix lands in the shielded pool.
	txs := []domain.RawTransaction{
		{
			TxID:             "bb",
			Amount:           -2 * coin,
			Unconfirmed:      true,
			OutgoingMetadata: []domain.OutgoingMetadata{{}},
		},
	}

	got := Classify(raw, txs)

	assert.Equal(t, domain.Amount(0), got.Incoming())
	assert.Equal(t, domain.Amount(0), got.ChangeTransparent)
	assert.Equal(t, 2*coin, got.ChangeShielded)
	assert.Equal(t, 2*coin, got.Unconfirmed())
}

func TestClassifyClampsSpendableToTotal(t *testing.T) {
	// upstream inconsistency: spendable exceeds total.
	raw := domain.RawBalance{
		Transparent:          5 * coin,
		SpendableTransparent: 6 * coin,
	}

	got := Classify(raw, nil)

	assert.Equal(t, 5*coin, got.SpendableTransparent)
	assert.Equal(t, domain.Amount(0), got.SpendableShielded)
	assert.LessOrEqual(t, int64(got.Spendable()), int64(got.Total()))
}

func TestClassifyClampScalesBothPools(t *testing.T) {
	raw := domain.RawBalance{
		Transparent:          3 * coin,
		Shielded:             3 * coin,
		SpendableTransparent: 6 * coin,
		SpendableShielded:    2 * coin,
	}

	got := Classify(raw, nil)

	require.Equal(t, 6*coin, got.Spendable(), "clamped spendable must equal total exactly")
	// 6:2 ratio preserved over the 6-coin total.
	assert.Equal(t, domain.Amount(450_000_000), got.SpendableTransparent)
	assert.Equal(t, domain.Amount(150_000_000), got.SpendableShielded)
}

func TestClassifyNegativeChangeReassignsToIncoming(t *testing.T) {
	// unconfirmed incoming exceeds the non-spendable remainder; all of the
	// remainder is incoming and change clamps to zero.
	raw := domain.RawBalance{
		Transparent:          4 * coin,
		Shielded:             1 * coin,
		SpendableTransparent: 4 * coin,
	}
	txs := []domain.RawTransaction{
		{TxID: "cc", Amount: 3 * coin, Unconfirmed: true, Address: "t1abc"},
	}

	got := Classify(raw, txs)

	assert.Equal(t, domain.Amount(0), got.Change())
	assert.Equal(t, 1*coin, got.Incoming())
	// reassigned proportionally by the total's 4:1 pool ratio.
	assert.Equal(t, domain.Amount(80_000_000), got.IncomingTransparent)
	assert.Equal(t, domain.Amount(20_000_000), got.IncomingShielded)
}

func TestClassifyChangeSplitFallsBackToTotalRatio(t *testing.T) {
	// non-spendable remainder with no unconfirmed transactions at all: the
	// change split follows the total's pool ratio.
	raw := domain.RawBalance{
		Transparent:          8 * coin,
		Shielded:             2 * coin,
		SpendableTransparent: 5 * coin,
	}

	got := Classify(raw, nil)

	assert.Equal(t, 5*coin, got.Unconfirmed())
	assert.Equal(t, 4*coin, got.ChangeTransparent)
	assert.Equal(t, 1*coin, got.ChangeShielded)
}

func TestClassifyConfirmedTransactionsIgnored(t *testing.T) {
	raw := domain.RawBalance{
		Transparent:          5 * coin,
		SpendableTransparent: 5 * coin,
	}
	txs := []domain.RawTransaction{
		{TxID: "dd", Amount: 1 * coin, BlockHeight: 100, Address: "t1abc"},
	}

	got := Classify(raw, txs)

	assert.Equal(t, domain.Amount(0), got.Unconfirmed())
}

func TestClassifyInvariants(t *testing.T) {
	cases := []struct {
		name string
		raw  domain.RawBalance
		txs  []domain.RawTransaction
	}{
		{
			name: "consistent snapshot",
			raw: domain.RawBalance{
				Transparent: 5 * coin, Shielded: 2 * coin,
				SpendableTransparent: 3 * coin, SpendableShielded: 1 * coin,
			},
			txs: []domain.RawTransaction{
				{TxID: "a", Amount: 1 * coin, Unconfirmed: true, Address: "t1x"},
				{TxID: "b", Amount: -2 * coin, Unconfirmed: true, OutgoingMetadata: []domain.OutgoingMetadata{{Address: "zsfoo"}}},
			},
		},
		{
			name: "spendable overreported",
			raw: domain.RawBalance{
				Transparent: 1 * coin, SpendableTransparent: 9 * coin, SpendableShielded: 3 * coin,
			},
		},
		{
			name: "zero balances",
			raw:  domain.RawBalance{},
		},
		{
			name: "incoming exceeds remainder",
			raw: domain.RawBalance{
				Transparent: 2 * coin, SpendableTransparent: 2 * coin,
			},
			txs: []domain.RawTransaction{
				{TxID: "c", Amount: 7 * coin, Unconfirmed: true, Address: "zsbar"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.raw, tc.txs)

			assert.LessOrEqual(t, int64(got.Spendable()), int64(got.Total()),
				"spendable must never exceed total")
			assert.Equal(t, got.Total()-got.Spendable(), got.Unconfirmed(),
				"incoming plus change must account for every non-spendable unit")
			assert.GreaterOrEqual(t, int64(got.Incoming()), int64(0))
			assert.GreaterOrEqual(t, int64(got.Change()), int64(0))
		})
	}
}
