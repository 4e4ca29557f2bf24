package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerTransaction struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	IdempotencyKey      *string         `gorm:"type:varchar(255);uniqueIndex"`
	FromAccount         *uuid.UUID      `gorm:"type:uuid;index"`
	ToAccount           *uuid.UUID      `gorm:"type:uuid;index"`
	ExternalAddress     *string         `gorm:"type:varchar(64)"`
	Amount              decimal.Decimal `gorm:"type:numeric(36,18);not null"`
	AssetType           string          `gorm:"type:varchar(16);not null"`
	Kind                string          `gorm:"type:varchar(16);not null"`
	Status              string          `gorm:"type:varchar(16);not null;index:idx_ledger_transactions_status_created,priority:1"`
	SettlementReference *string         `gorm:"type:varchar(128);index"`
	FailureReason       *string         `gorm:"type:text"`
	Memo                string          `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt           time.Time       `gorm:"index:idx_ledger_transactions_status_created,priority:2"`
	UpdatedAt           time.Time
	FinalizedAt         *time.Time
}

func (LedgerTransaction) TableName() string {
	return "ledger_transactions"
}
