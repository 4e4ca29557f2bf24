package usecases

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/internal/infrastructure/metrics"
	"paymenow.backend/pkg/logger"
	"paymenow.backend/pkg/utils"
)

// DepositForUser credits funds that arrived from outside the ledger. The
// record has the account on both sides and the "Deposit" memo.
func (u *LedgerUsecase) DepositForUser(ctx context.Context, input entities.DepositInput) (*entities.DepositResult, error) {
	kind := entities.TransactionKindInternal
	if err := validateAmount(input.Amount, input.AssetType); err != nil {
		return nil, u.reject(kind, err)
	}
	if input.AccountID == uuid.Nil {
		return nil, u.reject(kind, invalidInput("account is required"))
	}

	walletKey := entities.WalletKey{AccountID: input.AccountID, AssetType: input.AssetType}
	key := ""
	if input.IdempotencyKey != "" {
		key = entities.ScopedIdempotencyKey(input.AccountID, "deposit:"+input.IdempotencyKey)
	}

	existing, err := u.findByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, u.reject(kind, asTransferError(err, uuid.Nil))
	}
	if existing != nil {
		return u.replayDeposit(ctx, existing, input)
	}

	ok, err := u.accountRepo.Exists(ctx, input.AccountID)
	if err != nil {
		return nil, u.reject(kind, asTransferError(err, uuid.Nil))
	}
	if !ok {
		return nil, u.reject(kind, domainerrors.NewTransferError(domainerrors.ErrAccountNotFound, uuid.Nil, nil))
	}
	if u.cfg.StrictDeposit {
		ok, err := u.balanceRepo.Exists(ctx, walletKey)
		if err != nil {
			return nil, u.reject(kind, asTransferError(err, uuid.Nil))
		}
		if !ok {
			return nil, u.reject(kind, domainerrors.NewTransferError(domainerrors.ErrWalletNotFound, uuid.Nil, nil))
		}
	}

	accountID := input.AccountID
	tx := &entities.Transaction{
		ID:             utils.GenerateUUIDv7(),
		IdempotencyKey: optionalKey(key),
		FromAccount:    &accountID,
		ToAccount:      &accountID,
		Amount:         input.Amount,
		AssetType:      input.AssetType,
		Kind:           kind,
		Status:         entities.TransactionStatusCompleted,
		Memo:           entities.DepositMemo,
	}

	var newBalance decimal.Decimal
	if u.uow.Atomic() {
		err = u.uow.Do(ctx, func(txCtx context.Context) error {
			if err := u.balanceRepo.Upsert(txCtx, walletKey, decimal.Zero); err != nil {
				return err
			}
			balance, err := u.balanceRepo.Adjust(txCtx, walletKey, input.Amount, decimal.Zero)
			if err != nil {
				return err
			}
			newBalance = balance
			return u.txRepo.Create(txCtx, tx)
		})
	} else {
		newBalance, err = u.depositCompensating(ctx, walletKey, tx)
	}
	if err != nil {
		if winner := u.raceWinner(ctx, key, err); winner != nil {
			return u.replayDeposit(ctx, winner, input)
		}
		return nil, u.reject(kind, asTransferError(err, uuid.Nil))
	}

	logger.Info(ctx, "Deposit credited",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("account_id", accountID.String()),
		zap.String("asset", string(tx.AssetType)),
		zap.String("amount", tx.Amount.String()),
	)
	metrics.RecordTransfer(kind, string(entities.TransactionStatusCompleted))
	u.notify(ctx, tx, accountID, entities.OutcomeDepositReceived, "")

	return &entities.DepositResult{
		TransactionID: tx.ID,
		NewBalance:    newBalance,
	}, nil
}

func (u *LedgerUsecase) depositCompensating(ctx context.Context, walletKey entities.WalletKey, tx *entities.Transaction) (decimal.Decimal, error) {
	if err := u.balanceRepo.Upsert(ctx, walletKey, decimal.Zero); err != nil {
		return decimal.Zero, err
	}
	balance, err := u.balanceRepo.Adjust(ctx, walletKey, tx.Amount, decimal.Zero)
	if err != nil {
		return decimal.Zero, err
	}
	if err := u.txRepo.Create(ctx, tx); err != nil {
		u.compensate(ctx, tx.ID, "reverse_deposit", walletKey, tx.Amount.Neg())
		return decimal.Zero, err
	}
	return balance, nil
}

func (u *LedgerUsecase) replayDeposit(ctx context.Context, existing *entities.Transaction, input entities.DepositInput) (*entities.DepositResult, error) {
	req := replayRequest{
		kind:      entities.TransactionKindInternal,
		amount:    input.Amount,
		asset:     input.AssetType,
		toAccount: input.AccountID,
	}
	if _, err := replayOf(existing, req); err != nil {
		return nil, err
	}
	balance, err := u.balanceRepo.Get(ctx, entities.WalletKey{AccountID: input.AccountID, AssetType: input.AssetType})
	if err != nil {
		return nil, asTransferError(err, existing.ID)
	}
	return &entities.DepositResult{
		TransactionID: existing.ID,
		NewBalance:    balance,
		Replayed:      true,
	}, nil
}
