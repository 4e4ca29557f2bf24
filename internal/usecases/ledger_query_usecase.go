package usecases

import (
	"context"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/internal/domain/repositories"
)

// GetBalance returns the account's balance in asset, zero when it has no wallet for it
func (u *LedgerUsecase) GetBalance(ctx context.Context, accountID uuid.UUID, asset entities.AssetType) (decimal.Decimal, error) {
	if !asset.Valid() {
		return decimal.Zero, domainerrors.ErrInvalidAsset
	}
	return u.balanceRepo.Get(ctx, entities.WalletKey{AccountID: accountID, AssetType: asset})
}

// GetBalances returns every wallet of the account
func (u *LedgerUsecase) GetBalances(ctx context.Context, accountID uuid.UUID) ([]*entities.WalletBalance, error) {
	return u.balanceRepo.ListByAccount(ctx, accountID)
}

// GetTransaction returns a record the account is a party to. Records of other
// accounts are reported as not found.
func (u *LedgerUsecase) GetTransaction(ctx context.Context, accountID, id uuid.UUID) (*entities.Transaction, error) {
	tx, err := u.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tx.Involves(accountID) {
		return nil, domainerrors.ErrNotFound
	}
	return tx, nil
}

// ListTransactions returns the account's history newest first as a lazy sequence
func (u *LedgerUsecase) ListTransactions(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) iter.Seq2[*entities.Transaction, error] {
	return repositories.TransactionsForAccount(ctx, u.txRepo, accountID, filter)
}

// ListTransactionsPage returns one offset page of history plus the total count
func (u *LedgerUsecase) ListTransactionsPage(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) ([]*entities.Transaction, int64, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, 0, fmt.Errorf("%w: from must not be after to", domainerrors.ErrInvalidInput)
	}

	txs, err := u.txRepo.ListByAccount(ctx, accountID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := u.txRepo.CountByAccount(ctx, accountID, filter)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}
