package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/internal/infrastructure/models"
	"paymenow.backend/pkg/utils"
)

// BalanceRepository implements wallet balance data operations
type BalanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *gorm.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// Adjust adds delta to the balance in one conditional UPDATE and returns the new balance.
// The row is left untouched when balance+delta would drop below minimum.
func (r *BalanceRepository) Adjust(ctx context.Context, key entities.WalletKey, delta, minimum decimal.Decimal) (decimal.Decimal, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)

	result := db.Model(&models.WalletBalance{}).
		Where("account_id = ? AND asset_type = ?", key.AccountID, string(key.AssetType)).
		Where("balance + CAST(? AS NUMERIC) >= CAST(? AS NUMERIC)", delta.String(), minimum.String()).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + CAST(? AS NUMERIC)", delta.String()),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return decimal.Zero, translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, domainerrors.ErrInsufficientFunds
	}

	var m models.WalletBalance
	if err := db.Where("account_id = ? AND asset_type = ?", key.AccountID, string(key.AssetType)).
		First(&m).Error; err != nil {
		return decimal.Zero, translateError(err)
	}
	return m.Balance, nil
}

// Get returns the balance, or zero when the wallet has never been credited
func (r *BalanceRepository) Get(ctx context.Context, key entities.WalletKey) (decimal.Decimal, error) {
	db := lockingDB(ctx, GetDB(ctx, r.db).WithContext(ctx))

	var m models.WalletBalance
	err := db.Where("account_id = ? AND asset_type = ?", key.AccountID, string(key.AssetType)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, translateError(err)
	}
	return m.Balance, nil
}

// Upsert creates the wallet row with the initial balance if it does not exist yet
func (r *BalanceRepository) Upsert(ctx context.Context, key entities.WalletKey, initial decimal.Decimal) error {
	now := time.Now().UTC()
	m := &models.WalletBalance{
		ID:        utils.GenerateUUIDv7(),
		AccountID: key.AccountID,
		AssetType: string(key.AssetType),
		Balance:   initial,
		CreatedAt: now,
		UpdatedAt: now,
	}

	db := GetDB(ctx, r.db).WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "asset_type"}},
		DoNothing: true,
	}).Create(m).Error
	return translateError(err)
}

// Exists reports whether the wallet row has been provisioned
func (r *BalanceRepository) Exists(ctx context.Context, key entities.WalletKey) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).WithContext(ctx).Model(&models.WalletBalance{}).
		Where("account_id = ? AND asset_type = ?", key.AccountID, string(key.AssetType)).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// ListByAccount returns every wallet of an account ordered by asset
func (r *BalanceRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*entities.WalletBalance, error) {
	var ms []models.WalletBalance
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("asset_type ASC").
		Find(&ms).Error; err != nil {
		return nil, translateError(err)
	}

	balances := make([]*entities.WalletBalance, 0, len(ms))
	for i := range ms {
		balances = append(balances, toBalanceEntity(&ms[i]))
	}
	return balances, nil
}

func toBalanceEntity(m *models.WalletBalance) *entities.WalletBalance {
	return &entities.WalletBalance{
		ID:        m.ID,
		AccountID: m.AccountID,
		AssetType: entities.AssetType(m.AssetType),
		Balance:   m.Balance,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
