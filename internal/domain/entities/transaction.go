package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// TransactionKind represents where the counterparty of a transfer lives
type TransactionKind string

const (
	TransactionKindInternal TransactionKind = "INTERNAL"
	TransactionKindExternal TransactionKind = "EXTERNAL"
)

// TransactionStatus represents transaction status
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Terminal reports whether no further transition is allowed out of s.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// CanTransitionTo enforces PENDING -> {COMPLETED, FAILED}.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == TransactionStatusPending && next.Terminal()
}

// DepositMemo is the memo written on deposit records.
const DepositMemo = "Deposit"

// Transaction is one entry of the transaction log
type Transaction struct {
	ID                  uuid.UUID         `json:"id"`
	IdempotencyKey      null.String       `json:"-"`
	FromAccount         *uuid.UUID        `json:"fromAccount,omitempty"`
	ToAccount           *uuid.UUID        `json:"toAccount,omitempty"`
	ExternalAddress     null.String       `json:"externalAddress,omitempty"`
	Amount              decimal.Decimal   `json:"amount"`
	AssetType           AssetType         `json:"assetType"`
	Kind                TransactionKind   `json:"kind"`
	Status              TransactionStatus `json:"status"`
	SettlementReference null.String       `json:"settlementReference,omitempty"`
	FailureReason       null.String       `json:"failureReason,omitempty"`
	Memo                string            `json:"memo"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
	FinalizedAt         *time.Time        `json:"finalizedAt,omitempty"`
}

// Involves reports whether accountID is on either side of the transaction.
func (t *Transaction) Involves(accountID uuid.UUID) bool {
	return (t.FromAccount != nil && *t.FromAccount == accountID) ||
		(t.ToAccount != nil && *t.ToAccount == accountID)
}

// TransactionFilter narrows an account's history
type TransactionFilter struct {
	From   *time.Time
	To     *time.Time
	Status TransactionStatus
	Limit  int
	Offset int

	// Keyset cursor: only records strictly older than (BeforeTime, BeforeID).
	BeforeTime *time.Time
	BeforeID   *uuid.UUID
}
