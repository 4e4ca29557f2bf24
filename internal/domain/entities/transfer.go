package entities

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferInput is an internal wallet-to-wallet transfer request
type TransferInput struct {
	From           uuid.UUID
	To             uuid.UUID
	Amount         decimal.Decimal
	AssetType      AssetType
	Memo           string
	IdempotencyKey string
}

// ExternalTransferInput is a withdrawal to an address on the settlement network
type ExternalTransferInput struct {
	From           uuid.UUID
	ToAddress      string
	Amount         decimal.Decimal
	AssetType      AssetType
	Memo           string
	IdempotencyKey string
}

// DepositInput credits an account from outside the ledger
type DepositInput struct {
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	AssetType      AssetType
	IdempotencyKey string
}

// TransferResult is the outcome of a transfer. Replayed is set when an
// existing record was returned for a reused idempotency key.
type TransferResult struct {
	TransactionID       uuid.UUID         `json:"transactionId"`
	Status              TransactionStatus `json:"status"`
	SettlementReference string            `json:"settlementReference,omitempty"`
	Replayed            bool              `json:"replayed"`
}

// DepositResult is the outcome of a deposit
type DepositResult struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	NewBalance    decimal.Decimal `json:"newBalance"`
	Replayed      bool            `json:"replayed"`
}

// ScopedIdempotencyKey namespaces a client supplied key by the caller that supplied it.
func ScopedIdempotencyKey(caller uuid.UUID, key string) string {
	if key == "" {
		return ""
	}
	return caller.String() + ":" + key
}
