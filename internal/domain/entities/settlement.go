package entities

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SettlementStatus is what the settlement network reports for a submitted transfer
type SettlementStatus string

const (
	SettlementConfirmed SettlementStatus = "CONFIRMED"
	SettlementFailed    SettlementStatus = "FAILED"
	SettlementPending   SettlementStatus = "PENDING"
)

// ParseSettlementStatus accepts the three statuses case-insensitively.
func ParseSettlementStatus(s string) (SettlementStatus, error) {
	switch st := SettlementStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case SettlementConfirmed, SettlementFailed, SettlementPending:
		return st, nil
	}
	return "", fmt.Errorf("unknown settlement status %q", s)
}

// PreparedSettlement is a signed withdrawal that has not been broadcast.
// Reference identifies it on the network and is known before broadcast.
type PreparedSettlement struct {
	Reference string
	Payload   string
}

// SettlementConfirmation is delivered by the settlement callback. Either
// TransactionID or Reference identifies the record.
type SettlementConfirmation struct {
	TransactionID uuid.UUID
	Reference     string
	Status        SettlementStatus
	Reason        string
}

// ReconcileReport summarizes one sweep over stale pending transfers
type ReconcileReport struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
	Errors    int `json:"errors"`
}
