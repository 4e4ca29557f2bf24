package entities

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssetType(t *testing.T) {
	a, err := ParseAssetType("sol")
	require.NoError(t, err)
	assert.Equal(t, AssetSOL, a)

	a, err = ParseAssetType(" USDC ")
	require.NoError(t, err)
	assert.Equal(t, AssetUSDC, a)

	_, err = ParseAssetType("BTC")
	assert.ErrorIs(t, err, ErrUnknownAsset)

	assert.True(t, AssetSOL.Native())
	assert.False(t, AssetUSDC.Native())
	assert.False(t, AssetType("ETH").Valid())
}

func TestAssetType_Precision(t *testing.T) {
	assert.True(t, AssetSOL.FitsPrecision(decimal.RequireFromString("0.000000001")))
	assert.False(t, AssetSOL.FitsPrecision(decimal.RequireFromString("0.0000000001")))
	assert.True(t, AssetUSDC.FitsPrecision(decimal.RequireFromString("12.345678")))
	assert.False(t, AssetUSDC.FitsPrecision(decimal.RequireFromString("12.3456789")))
}

func TestAssetType_BaseUnits(t *testing.T) {
	units, err := AssetSOL.ToBaseUnits(decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), units)

	units, err = AssetUSDC.ToBaseUnits(decimal.RequireFromString("0.25"))
	require.NoError(t, err)
	assert.Equal(t, uint64(250_000), units)

	_, err = AssetUSDC.ToBaseUnits(decimal.RequireFromString("0.0000001"))
	assert.Error(t, err)

	_, err = AssetSOL.ToBaseUnits(decimal.RequireFromString("-1"))
	assert.Error(t, err)

	assert.True(t, AssetSOL.FromBaseUnits(2_500_000_000).Equal(decimal.RequireFromString("2.5")))
}

func TestAssetType_UnmarshalJSON(t *testing.T) {
	var body struct {
		Asset AssetType `json:"asset"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"asset":"usdc"}`), &body))
	assert.Equal(t, AssetUSDC, body.Asset)

	assert.Error(t, json.Unmarshal([]byte(`{"asset":"DOGE"}`), &body))
}

func TestTransactionStatus_Transitions(t *testing.T) {
	assert.True(t, TransactionStatusPending.CanTransitionTo(TransactionStatusCompleted))
	assert.True(t, TransactionStatusPending.CanTransitionTo(TransactionStatusFailed))
	assert.False(t, TransactionStatusPending.CanTransitionTo(TransactionStatusPending))
	assert.False(t, TransactionStatusCompleted.CanTransitionTo(TransactionStatusFailed))
	assert.False(t, TransactionStatusFailed.CanTransitionTo(TransactionStatusCompleted))
}

func TestWalletKey_LessOrdersByAccountString(t *testing.T) {
	a := WalletKey{AccountID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), AssetType: AssetSOL}
	b := WalletKey{AccountID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), AssetType: AssetSOL}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))

	aUSDC := WalletKey{AccountID: a.AccountID, AssetType: AssetUSDC}
	assert.True(t, a.Less(aUSDC))
}

func TestTransaction_Involves(t *testing.T) {
	from, to, other := uuid.New(), uuid.New(), uuid.New()
	tx := &Transaction{FromAccount: &from, ToAccount: &to}
	assert.True(t, tx.Involves(from))
	assert.True(t, tx.Involves(to))
	assert.False(t, tx.Involves(other))

	withdrawal := &Transaction{FromAccount: &from}
	assert.False(t, withdrawal.Involves(to))
}

func TestScopedIdempotencyKey(t *testing.T) {
	caller := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	assert.Equal(t, "", ScopedIdempotencyKey(caller, ""))
	assert.Equal(t, "11111111-1111-1111-1111-111111111111:k1", ScopedIdempotencyKey(caller, "k1"))
}

func TestParseSettlementStatus(t *testing.T) {
	s, err := ParseSettlementStatus("confirmed")
	require.NoError(t, err)
	assert.Equal(t, SettlementConfirmed, s)
	_, err = ParseSettlementStatus("finalized")
	assert.Error(t, err)
}
