package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"paymenow.backend/internal/domain/entities"
)

// BalanceRepository defines wallet balance data operations.
//
// Adjust is the only balance mutation: it applies delta in a single
// conditional write and fails with ErrInsufficientFunds when the result
// would fall below minimum or the row does not exist.
type BalanceRepository interface {
	Adjust(ctx context.Context, key entities.WalletKey, delta, minimum decimal.Decimal) (decimal.Decimal, error)
	Get(ctx context.Context, key entities.WalletKey) (decimal.Decimal, error)
	Upsert(ctx context.Context, key entities.WalletKey, initial decimal.Decimal) error
	Exists(ctx context.Context, key entities.WalletKey) (bool, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*entities.WalletBalance, error)
}
