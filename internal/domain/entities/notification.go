package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotificationOutcome is the event delivered to an account about one of its transfers
type NotificationOutcome string

const (
	OutcomeTransferSent      NotificationOutcome = "TRANSFER_SENT"
	OutcomeTransferReceived  NotificationOutcome = "TRANSFER_RECEIVED"
	OutcomeWithdrawalPending NotificationOutcome = "WITHDRAWAL_PENDING"
	OutcomeWithdrawalDone    NotificationOutcome = "WITHDRAWAL_COMPLETED"
	OutcomeWithdrawalFailed  NotificationOutcome = "WITHDRAWAL_FAILED"
	OutcomeDepositReceived   NotificationOutcome = "DEPOSIT_RECEIVED"
)

// Notification is one fire-and-forget message
type Notification struct {
	AccountID     uuid.UUID           `json:"accountId"`
	TransactionID uuid.UUID           `json:"transactionId"`
	Outcome       NotificationOutcome `json:"outcome"`
	Amount        decimal.Decimal     `json:"amount"`
	AssetType     AssetType           `json:"assetType"`
	Reason        string              `json:"reason,omitempty"`
	OccurredAt    time.Time           `json:"occurredAt"`
}
