package usecases

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/internal/infrastructure/metrics"
	"paymenow.backend/pkg/logger"
	"paymenow.backend/pkg/utils"
)

const attachAttempts = 3

// TransferInternal moves funds between two wallets held in the ledger.
// Both balance changes and the COMPLETED record are applied together or not at all.
func (u *LedgerUsecase) TransferInternal(ctx context.Context, input entities.TransferInput) (*entities.TransferResult, error) {
	kind := entities.TransactionKindInternal
	if err := validateAmount(input.Amount, input.AssetType); err != nil {
		return nil, u.reject(kind, err)
	}
	if input.From == uuid.Nil || input.To == uuid.Nil {
		return nil, u.reject(kind, invalidInput("source and destination accounts are required"))
	}
	if input.From == input.To {
		return nil, u.reject(kind, invalidInput("cannot transfer to the same account"))
	}

	req := replayRequest{kind: kind, amount: input.Amount, asset: input.AssetType, toAccount: input.To}
	key := entities.ScopedIdempotencyKey(input.From, input.IdempotencyKey)
	existing, err := u.findByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, u.reject(kind, asTransferError(err, uuid.Nil))
	}
	if existing != nil {
		return replayOf(existing, req)
	}

	ok, err := u.accountRepo.Exists(ctx, input.To)
	if err != nil {
		return nil, u.reject(kind, asTransferError(err, uuid.Nil))
	}
	if !ok {
		return nil, u.reject(kind, domainerrors.NewTransferError(domainerrors.ErrAccountNotFound, uuid.Nil, nil))
	}

	from, to := input.From, input.To
	tx := &entities.Transaction{
		ID:             utils.GenerateUUIDv7(),
		IdempotencyKey: optionalKey(key),
		FromAccount:    &from,
		ToAccount:      &to,
		Amount:         input.Amount,
		AssetType:      input.AssetType,
		Kind:           kind,
		Status:         entities.TransactionStatusCompleted,
		Memo:           input.Memo,
	}

	if u.uow.Atomic() {
		err = u.uow.Do(ctx, func(txCtx context.Context) error {
			return u.applyInternal(txCtx, tx)
		})
	} else {
		err = u.applyInternalCompensating(ctx, tx)
	}
	if err != nil {
		if winner := u.raceWinner(ctx, key, err); winner != nil {
			return replayOf(winner, req)
		}
		return nil, u.reject(kind, asTransferError(err, uuid.Nil))
	}

	logger.Info(ctx, "Internal transfer completed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("asset", string(tx.AssetType)),
		zap.String("amount", tx.Amount.String()),
	)
	metrics.RecordTransfer(kind, string(entities.TransactionStatusCompleted))
	u.notify(ctx, tx, from, entities.OutcomeTransferSent, "")
	u.notify(ctx, tx, to, entities.OutcomeTransferReceived, "")

	return &entities.TransferResult{
		TransactionID: tx.ID,
		Status:        tx.Status,
	}, nil
}

// applyInternal runs inside one atomic unit of work.
func (u *LedgerUsecase) applyInternal(ctx context.Context, tx *entities.Transaction) error {
	fromKey := entities.WalletKey{AccountID: *tx.FromAccount, AssetType: tx.AssetType}
	toKey := entities.WalletKey{AccountID: *tx.ToAccount, AssetType: tx.AssetType}

	if err := u.lockWallets(ctx, fromKey, toKey); err != nil {
		return err
	}
	if _, err := u.balanceRepo.Adjust(ctx, fromKey, tx.Amount.Neg(), decimal.Zero); err != nil {
		return err
	}
	if err := u.credit(ctx, toKey, tx.Amount); err != nil {
		return err
	}
	return u.txRepo.Create(ctx, tx)
}

// applyInternalCompensating is the same protocol on a store without
// multi-key transactions: every applied step is reversed by hand.
func (u *LedgerUsecase) applyInternalCompensating(ctx context.Context, tx *entities.Transaction) error {
	fromKey := entities.WalletKey{AccountID: *tx.FromAccount, AssetType: tx.AssetType}
	toKey := entities.WalletKey{AccountID: *tx.ToAccount, AssetType: tx.AssetType}

	if _, err := u.balanceRepo.Adjust(ctx, fromKey, tx.Amount.Neg(), decimal.Zero); err != nil {
		return err
	}
	if err := u.credit(ctx, toKey, tx.Amount); err != nil {
		u.compensate(ctx, tx.ID, "reverse_debit", fromKey, tx.Amount)
		return err
	}
	if err := u.txRepo.Create(ctx, tx); err != nil {
		// the debit is only returned once the credit is gone
		if u.compensate(ctx, tx.ID, "reverse_credit", toKey, tx.Amount.Neg()) {
			u.compensate(ctx, tx.ID, "reverse_debit", fromKey, tx.Amount)
		}
		return err
	}
	return nil
}

func (u *LedgerUsecase) credit(ctx context.Context, key entities.WalletKey, amount decimal.Decimal) error {
	if err := u.balanceRepo.Upsert(ctx, key, decimal.Zero); err != nil {
		return err
	}
	_, err := u.balanceRepo.Adjust(ctx, key, amount, decimal.Zero)
	return err
}

// lockWallets takes row locks on the given wallets in WalletKey order so two
// transfers in opposite directions cannot deadlock.
func (u *LedgerUsecase) lockWallets(ctx context.Context, keys ...entities.WalletKey) error {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	lockCtx := u.uow.WithLock(ctx)
	for _, key := range keys {
		if _, err := u.balanceRepo.Get(lockCtx, key); err != nil {
			return err
		}
	}
	return nil
}

// TransferExternal withdraws funds to an address on the settlement network.
// The debit is applied before submission and reversed only when the transfer
// definitely did not go out. The signed transfer's reference is stored before
// it is broadcast, so every broadcast withdrawal can be checked with Confirm.
// An outcome that is still unknown when the settlement timeout elapses is
// returned as PENDING and resolved by the callback or the sweep.
func (u *LedgerUsecase) TransferExternal(ctx context.Context, input entities.ExternalTransferInput) (*entities.TransferResult, error) {
	kind := entities.TransactionKindExternal
	if err := validateAmount(input.Amount, input.AssetType); err != nil {
		return nil, u.reject(kind, err)
	}
	if input.From == uuid.Nil {
		return nil, u.reject(kind, invalidInput("source account is required"))
	}
	if err := utils.ValidateSolanaAddress(input.ToAddress); err != nil {
		return nil, u.reject(kind, domainerrors.NewTransferError(domainerrors.ErrInvalidInput, uuid.Nil, err))
	}

	req := replayRequest{kind: kind, amount: input.Amount, asset: input.AssetType, externalAddress: input.ToAddress}
	key := entities.ScopedIdempotencyKey(input.From, input.IdempotencyKey)
	existing, err := u.findByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, u.reject(kind, asTransferError(err, uuid.Nil))
	}
	if existing != nil {
		return replayOf(existing, req)
	}

	fromKey := entities.WalletKey{AccountID: input.From, AssetType: input.AssetType}
	available, err := u.balanceRepo.Get(ctx, fromKey)
	if err != nil {
		return nil, u.reject(kind, asTransferError(err, uuid.Nil))
	}
	if available.LessThan(input.Amount) {
		return nil, u.reject(kind, domainerrors.NewTransferError(domainerrors.ErrInsufficientFunds, uuid.Nil, nil))
	}

	from := input.From
	tx := &entities.Transaction{
		ID:              utils.GenerateUUIDv7(),
		IdempotencyKey:  optionalKey(key),
		FromAccount:     &from,
		ExternalAddress: null.StringFrom(input.ToAddress),
		Amount:          input.Amount,
		AssetType:       input.AssetType,
		Kind:            kind,
		Status:          entities.TransactionStatusPending,
		Memo:            input.Memo,
	}
	if err := u.debitForWithdrawal(ctx, tx); err != nil {
		if winner := u.raceWinner(ctx, key, err); winner != nil {
			return replayOf(winner, req)
		}
		return nil, u.reject(kind, asTransferError(err, uuid.Nil))
	}

	// settlement outlives a disconnected client but never the timeout
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.cfg.SettlementTimeout)
	defer cancel()

	prepared, err := u.gateway.Prepare(settleCtx, input.ToAddress, input.Amount, input.AssetType)
	if err != nil {
		logger.Warn(ctx, "Settlement prepare failed",
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err),
		)
		return u.failWithdrawal(ctx, tx, "", "settlement prepare failed: "+err.Error(), err)
	}
	reference := prepared.Reference

	// nothing is broadcast until the reference is stored
	if err := u.attachReference(settleCtx, tx.ID, reference); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyFinalized) {
			return u.currentOutcome(ctx, tx.ID)
		}
		logger.Error(ctx, "Failed to attach settlement reference, withdrawal not broadcast",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return u.failWithdrawal(ctx, tx, "", "settlement reference not recorded: "+err.Error(), err)
	}

	if err := u.gateway.Broadcast(settleCtx, prepared); err != nil {
		if errors.Is(err, domainerrors.ErrSettlementRejected) {
			return u.failWithdrawal(ctx, tx, reference, "settlement broadcast rejected: "+err.Error(), err)
		}
		// the network may still have it; Confirm on the stored reference decides
		logger.Warn(ctx, "Settlement broadcast outcome unknown, left pending",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return u.pendingWithdrawal(ctx, tx, reference), nil
	}

	if u.cfg.SettlementMode == SettlementModeCallback {
		return u.pendingWithdrawal(ctx, tx, reference), nil
	}

	status, reason := u.awaitConfirmation(settleCtx, reference)
	switch status {
	case entities.SettlementFailed:
		return u.failWithdrawal(ctx, tx, reference, reason, errors.New(reason))
	case entities.SettlementPending:
		logger.Warn(ctx, "Settlement not confirmed in time, left pending",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("reference", reference),
		)
		return u.pendingWithdrawal(ctx, tx, reference), nil
	}
	if err := u.settle(ctx, tx, entities.TransactionStatusCompleted, reference, ""); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyFinalized) {
			return u.currentOutcome(ctx, tx.ID)
		}
		return nil, asTransferError(err, tx.ID)
	}
	return &entities.TransferResult{
		TransactionID:       tx.ID,
		Status:              entities.TransactionStatusCompleted,
		SettlementReference: reference,
	}, nil
}

// attachReference stores the settlement reference on the pending record,
// retrying transient storage errors.
func (u *LedgerUsecase) attachReference(ctx context.Context, id uuid.UUID, reference string) error {
	var err error
	for attempt := 1; attempt <= attachAttempts; attempt++ {
		err = u.txRepo.AttachReference(context.WithoutCancel(ctx), id, reference)
		if err == nil || errors.Is(err, domainerrors.ErrAlreadyFinalized) {
			return err
		}
		logger.Warn(ctx, "Attach settlement reference failed",
			zap.String("transaction_id", id.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == attachAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(u.cfg.ConfirmPollInterval):
		}
	}
	return err
}

// pendingWithdrawal reports a broadcast withdrawal left for the callback or the sweep.
func (u *LedgerUsecase) pendingWithdrawal(ctx context.Context, tx *entities.Transaction, reference string) *entities.TransferResult {
	u.notify(ctx, tx, *tx.FromAccount, entities.OutcomeWithdrawalPending, "")
	return &entities.TransferResult{
		TransactionID:       tx.ID,
		Status:              entities.TransactionStatusPending,
		SettlementReference: reference,
	}
}

// debitForWithdrawal applies the authoritative debit and writes the PENDING record.
func (u *LedgerUsecase) debitForWithdrawal(ctx context.Context, tx *entities.Transaction) error {
	fromKey := entities.WalletKey{AccountID: *tx.FromAccount, AssetType: tx.AssetType}
	if u.uow.Atomic() {
		return u.uow.Do(ctx, func(txCtx context.Context) error {
			if _, err := u.balanceRepo.Adjust(txCtx, fromKey, tx.Amount.Neg(), decimal.Zero); err != nil {
				return err
			}
			return u.txRepo.Create(txCtx, tx)
		})
	}

	if _, err := u.balanceRepo.Adjust(ctx, fromKey, tx.Amount.Neg(), decimal.Zero); err != nil {
		return err
	}
	if err := u.txRepo.Create(ctx, tx); err != nil {
		u.compensate(ctx, tx.ID, "reverse_debit", fromKey, tx.Amount)
		return err
	}
	return nil
}

// failWithdrawal fails a withdrawal whose settlement did not go through and
// reports SettlementFailure with the transaction id. When another path
// finalized the record first, its outcome is returned instead.
func (u *LedgerUsecase) failWithdrawal(ctx context.Context, tx *entities.Transaction, reference, reason string, cause error) (*entities.TransferResult, error) {
	if err := u.settle(ctx, tx, entities.TransactionStatusFailed, reference, reason); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyFinalized) {
			return u.currentOutcome(ctx, tx.ID)
		}
		// the record stays PENDING with its debit; the sweep retries the reversal
		logger.Error(ctx, "Failed to reverse withdrawal",
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err),
		)
	}
	return nil, domainerrors.NewTransferError(domainerrors.ErrSettlementFailure, tx.ID, cause)
}

// currentOutcome reports the stored state of a record finalized by someone else.
func (u *LedgerUsecase) currentOutcome(ctx context.Context, id uuid.UUID) (*entities.TransferResult, error) {
	current, err := u.txRepo.GetByID(context.WithoutCancel(ctx), id)
	if err != nil {
		return nil, asTransferError(err, id)
	}
	if current.Status == entities.TransactionStatusFailed {
		return nil, domainerrors.NewTransferError(domainerrors.ErrSettlementFailure, id, failureCause(current))
	}
	return &entities.TransferResult{
		TransactionID:       current.ID,
		Status:              current.Status,
		SettlementReference: current.SettlementReference.String,
	}, nil
}
