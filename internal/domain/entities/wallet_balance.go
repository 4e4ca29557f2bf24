package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletKey identifies one balance row.
type WalletKey struct {
	AccountID uuid.UUID `json:"accountId"`
	AssetType AssetType `json:"assetType"`
}

// Less orders keys lexicographically by account id, then asset. Row locks are taken in this order.
func (k WalletKey) Less(other WalletKey) bool {
	if c := strings.Compare(k.AccountID.String(), other.AccountID.String()); c != 0 {
		return c < 0
	}
	return k.AssetType < other.AssetType
}

// WalletBalance represents the balance an account holds for one asset
type WalletBalance struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"accountId"`
	AssetType AssetType       `json:"assetType"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Key returns the (account, asset) key of the balance row.
func (w *WalletBalance) Key() WalletKey {
	return WalletKey{AccountID: w.AccountID, AssetType: w.AssetType}
}
