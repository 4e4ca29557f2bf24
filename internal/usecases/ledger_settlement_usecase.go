package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/internal/infrastructure/metrics"
	"paymenow.backend/pkg/logger"
)

const (
	reasonRejected    = "rejected by settlement network"
	reasonNoReference = "no settlement reference recorded"
	reasonExpiredFmt  = "settlement not confirmed within %s"
	reverseWithdrawal = "reverse_withdrawal"
)

// awaitConfirmation polls the gateway until the reference confirms, fails,
// or ctx expires. Transient Confirm errors keep the loop going. An expired ctx
// reports SettlementPending: the transfer may still land.
func (u *LedgerUsecase) awaitConfirmation(ctx context.Context, reference string) (entities.SettlementStatus, string) {
	ticker := time.NewTicker(u.cfg.ConfirmPollInterval)
	defer ticker.Stop()

	for {
		status, err := u.gateway.Confirm(ctx, reference)
		switch {
		case err != nil && ctx.Err() != nil:
			return entities.SettlementPending, ""
		case err != nil:
			logger.Warn(ctx, "Settlement confirm failed, retrying",
				zap.String("reference", reference),
				zap.Error(err),
			)
		case status == entities.SettlementConfirmed:
			return entities.SettlementConfirmed, ""
		case status == entities.SettlementFailed:
			return entities.SettlementFailed, reasonRejected
		}

		select {
		case <-ctx.Done():
			return entities.SettlementPending, ""
		case <-ticker.C:
		}
	}
}

// settle applies a terminal settlement outcome to a pending withdrawal and
// notifies the sender. ErrAlreadyFinalized means another path resolved it first.
func (u *LedgerUsecase) settle(ctx context.Context, tx *entities.Transaction, status entities.TransactionStatus, reference, reason string) error {
	var err error
	if status == entities.TransactionStatusCompleted {
		err = u.txRepo.Finalize(context.WithoutCancel(ctx), tx.ID, status, reference, "")
	} else {
		err = u.failExternal(ctx, tx, reference, reason)
	}
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyFinalized) {
			logger.Warn(ctx, "Withdrawal already finalized",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("attempted_status", string(status)),
			)
		}
		return err
	}

	logger.Info(ctx, "Withdrawal finalized",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("status", string(status)),
		zap.String("reference", reference),
	)
	metrics.RecordTransfer(entities.TransactionKindExternal, string(status))

	outcome := entities.OutcomeWithdrawalDone
	if status == entities.TransactionStatusFailed {
		outcome = entities.OutcomeWithdrawalFailed
	}
	u.notify(ctx, tx, *tx.FromAccount, outcome, reason)
	return nil
}

// failExternal marks a pending withdrawal FAILED and returns exactly the
// debited amount to the sender. The guarded finalize comes first, so a record
// that was already finalized is never re-credited.
func (u *LedgerUsecase) failExternal(ctx context.Context, tx *entities.Transaction, reference, reason string) error {
	ctx = context.WithoutCancel(ctx)
	fromKey := entities.WalletKey{AccountID: *tx.FromAccount, AssetType: tx.AssetType}

	if u.uow.Atomic() {
		err := u.uow.Do(ctx, func(txCtx context.Context) error {
			if err := u.txRepo.Finalize(txCtx, tx.ID, entities.TransactionStatusFailed, reference, reason); err != nil {
				return err
			}
			_, err := u.balanceRepo.Adjust(txCtx, fromKey, tx.Amount, decimal.Zero)
			return err
		})
		if errors.Is(err, domainerrors.ErrAlreadyFinalized) {
			return err
		}
		metrics.RecordCompensation(reverseWithdrawal, err == nil)
		return err
	}

	if err := u.txRepo.Finalize(ctx, tx.ID, entities.TransactionStatusFailed, reference, reason); err != nil {
		return err
	}
	if !u.compensate(ctx, tx.ID, reverseWithdrawal, fromKey, tx.Amount) {
		return fmt.Errorf("%w: withdrawal %s failed but its debit was not returned", domainerrors.ErrStorageFailure, tx.ID)
	}
	return nil
}

// ConfirmSettlement applies a confirmation delivered by the settlement
// callback. A confirmation for a record that is already terminal is a no-op
// and returns the stored record.
func (u *LedgerUsecase) ConfirmSettlement(ctx context.Context, conf entities.SettlementConfirmation) (*entities.Transaction, error) {
	tx, err := u.lookupSettlement(ctx, conf)
	if err != nil {
		return nil, err
	}
	if tx.Kind != entities.TransactionKindExternal {
		return nil, domainerrors.NewTransferError(domainerrors.ErrInvalidInput, tx.ID, errors.New("not a withdrawal"))
	}
	if conf.Reference != "" && tx.SettlementReference.Valid && tx.SettlementReference.String != conf.Reference {
		return nil, domainerrors.NewTransferError(domainerrors.ErrInvalidInput, tx.ID, errors.New("settlement reference does not match"))
	}

	reference := conf.Reference
	if reference == "" {
		reference = tx.SettlementReference.String
	}

	switch conf.Status {
	case entities.SettlementPending:
		return tx, nil
	case entities.SettlementConfirmed:
		err = u.settle(ctx, tx, entities.TransactionStatusCompleted, reference, "")
	case entities.SettlementFailed:
		reason := conf.Reason
		if reason == "" {
			reason = reasonRejected
		}
		err = u.settle(ctx, tx, entities.TransactionStatusFailed, reference, reason)
	default:
		return nil, domainerrors.NewTransferError(domainerrors.ErrInvalidInput, tx.ID, fmt.Errorf("unknown settlement status %q", conf.Status))
	}
	if err != nil && !errors.Is(err, domainerrors.ErrAlreadyFinalized) {
		return nil, asTransferError(err, tx.ID)
	}

	current, err := u.txRepo.GetByID(ctx, tx.ID)
	if err != nil {
		return nil, asTransferError(err, tx.ID)
	}
	return current, nil
}

func (u *LedgerUsecase) lookupSettlement(ctx context.Context, conf entities.SettlementConfirmation) (*entities.Transaction, error) {
	var (
		tx  *entities.Transaction
		err error
	)
	switch {
	case conf.TransactionID != uuid.Nil:
		tx, err = u.txRepo.GetByID(ctx, conf.TransactionID)
	case conf.Reference != "":
		tx, err = u.txRepo.GetByReference(ctx, conf.Reference)
	default:
		return nil, invalidInput("transaction id or settlement reference is required")
	}
	if err != nil {
		return nil, asTransferError(err, conf.TransactionID)
	}
	return tx, nil
}

// ReconcilePending resolves withdrawals stuck in PENDING past the pending
// timeout. Records without a settlement reference were never broadcast, since
// the reference is stored first, and are failed; the rest are resolved by asking the gateway, and
// failed once they outlive the maximum pending age.
func (u *LedgerUsecase) ReconcilePending(ctx context.Context) (entities.ReconcileReport, error) {
	var report entities.ReconcileReport
	now := u.now()

	stale, err := u.txRepo.GetStalePending(ctx, entities.TransactionKindExternal, now.Add(-u.cfg.PendingTimeout), u.cfg.ReconcileBatchSize)
	if err != nil {
		return report, fmt.Errorf("failed to load pending withdrawals: %w", err)
	}

	for _, tx := range stale {
		if ctx.Err() != nil {
			break
		}
		report.Checked++

		status, err := u.reconcileOne(ctx, tx, now)
		switch {
		case errors.Is(err, domainerrors.ErrAlreadyFinalized):
			// resolved by the callback while the sweep was running
		case err != nil:
			report.Errors++
			logger.Error(ctx, "Failed to reconcile withdrawal",
				zap.String("transaction_id", tx.ID.String()),
				zap.Error(err),
			)
		case status == entities.TransactionStatusCompleted:
			report.Completed++
		case status == entities.TransactionStatusFailed:
			report.Failed++
		default:
			report.Pending++
		}
	}

	metrics.RecordReconcile(report)
	if report.Checked > 0 {
		logger.Info(ctx, "Reconciled pending withdrawals",
			zap.Int("checked", report.Checked),
			zap.Int("completed", report.Completed),
			zap.Int("failed", report.Failed),
			zap.Int("pending", report.Pending),
			zap.Int("errors", report.Errors),
		)
	}
	return report, nil
}

func (u *LedgerUsecase) reconcileOne(ctx context.Context, tx *entities.Transaction, now time.Time) (entities.TransactionStatus, error) {
	reference := tx.SettlementReference.String
	if reference == "" {
		return entities.TransactionStatusFailed, u.settle(ctx, tx, entities.TransactionStatusFailed, "", reasonNoReference)
	}

	status, err := u.gateway.Confirm(ctx, reference)
	if err != nil {
		return "", fmt.Errorf("confirm %s: %w", reference, err)
	}

	switch status {
	case entities.SettlementConfirmed:
		return entities.TransactionStatusCompleted, u.settle(ctx, tx, entities.TransactionStatusCompleted, reference, "")
	case entities.SettlementFailed:
		return entities.TransactionStatusFailed, u.settle(ctx, tx, entities.TransactionStatusFailed, reference, reasonRejected)
	}

	if now.Sub(tx.CreatedAt) > u.cfg.MaxPendingAge {
		reason := fmt.Sprintf(reasonExpiredFmt, u.cfg.MaxPendingAge)
		return entities.TransactionStatusFailed, u.settle(ctx, tx, entities.TransactionStatusFailed, reference, reason)
	}
	return entities.TransactionStatusPending, nil
}
