package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletBalance struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AccountID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_balances_account_asset"`
	AssetType string          `gorm:"type:varchar(16);not null;uniqueIndex:idx_wallet_balances_account_asset"`
	Balance   decimal.Decimal `gorm:"type:numeric(36,18);not null;default:0"`
	Version   int64           `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (WalletBalance) TableName() string {
	return "wallet_balances"
}
