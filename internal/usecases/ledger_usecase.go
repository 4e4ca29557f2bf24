package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/internal/domain/repositories"
	"paymenow.backend/internal/infrastructure/metrics"
	"paymenow.backend/pkg/logger"
)

// SettlementGateway sends withdrawals to the settlement network and reports on
// them. Prepare signs without broadcasting so the reference can be stored
// first. Broadcast wraps a definite refusal with ErrSettlementRejected; any
// other error leaves the outcome unknown.
type SettlementGateway interface {
	Prepare(ctx context.Context, destination string, amount decimal.Decimal, asset entities.AssetType) (entities.PreparedSettlement, error)
	Broadcast(ctx context.Context, prepared entities.PreparedSettlement) error
	Confirm(ctx context.Context, reference string) (entities.SettlementStatus, error)
}

// Notifier delivers transfer outcomes to account holders. Notify must not
// block on delivery.
type Notifier interface {
	Notify(ctx context.Context, n entities.Notification)
}

// SettlementMode selects how an accepted withdrawal reaches a terminal status
type SettlementMode string

const (
	// SettlementModeSync polls the gateway until the withdrawal confirms or the timeout elapses.
	SettlementModeSync SettlementMode = "sync"
	// SettlementModeCallback leaves the withdrawal PENDING for the webhook or the sweep.
	SettlementModeCallback SettlementMode = "callback"
)

// LedgerConfig tunes the ledger engine
type LedgerConfig struct {
	SettlementMode      SettlementMode
	SettlementTimeout   time.Duration
	ConfirmPollInterval time.Duration
	StrictDeposit       bool
	PendingTimeout      time.Duration
	MaxPendingAge       time.Duration
	ReconcileBatchSize  int
}

func (c LedgerConfig) withDefaults() LedgerConfig {
	if c.SettlementMode != SettlementModeCallback {
		c.SettlementMode = SettlementModeSync
	}
	if c.SettlementTimeout <= 0 {
		c.SettlementTimeout = 30 * time.Second
	}
	if c.ConfirmPollInterval <= 0 {
		c.ConfirmPollInterval = 2 * time.Second
	}
	if c.PendingTimeout <= 0 {
		c.PendingTimeout = 2 * time.Minute
	}
	// the sweep must not race a request that is still waiting on its own settlement
	if c.PendingTimeout < c.SettlementTimeout {
		c.PendingTimeout = c.SettlementTimeout
	}
	if c.MaxPendingAge <= 0 {
		c.MaxPendingAge = time.Hour
	}
	if c.ReconcileBatchSize <= 0 {
		c.ReconcileBatchSize = 100
	}
	return c
}

// LedgerUsecase moves value between wallets and out to the settlement network.
// It is the only writer of wallet balances and transaction records.
type LedgerUsecase struct {
	balanceRepo repositories.BalanceRepository
	txRepo      repositories.TransactionRepository
	accountRepo repositories.AccountRepository
	uow         repositories.UnitOfWork
	gateway     SettlementGateway
	notifier    Notifier
	cfg         LedgerConfig
	now         func() time.Time
}

// NewLedgerUsecase creates a new ledger usecase
func NewLedgerUsecase(
	balanceRepo repositories.BalanceRepository,
	txRepo repositories.TransactionRepository,
	accountRepo repositories.AccountRepository,
	uow repositories.UnitOfWork,
	gateway SettlementGateway,
	notifier Notifier,
	cfg LedgerConfig,
) *LedgerUsecase {
	return &LedgerUsecase{
		balanceRepo: balanceRepo,
		txRepo:      txRepo,
		accountRepo: accountRepo,
		uow:         uow,
		gateway:     gateway,
		notifier:    notifier,
		cfg:         cfg.withDefaults(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the effective configuration after defaults were applied
func (u *LedgerUsecase) Config() LedgerConfig {
	return u.cfg
}

func validateAmount(amount decimal.Decimal, asset entities.AssetType) error {
	if !asset.Valid() {
		return domainerrors.NewTransferError(domainerrors.ErrInvalidAsset, uuid.Nil, fmt.Errorf("unsupported asset %q", asset))
	}
	if !amount.IsPositive() {
		return domainerrors.NewTransferError(domainerrors.ErrInvalidAmount, uuid.Nil, errors.New("amount must be greater than zero"))
	}
	if !asset.FitsPrecision(amount) {
		return domainerrors.NewTransferError(domainerrors.ErrInvalidAmount, uuid.Nil,
			fmt.Errorf("%s supports at most %d decimal places", asset, asset.Decimals()))
	}
	return nil
}

func invalidInput(msg string) error {
	return domainerrors.NewTransferError(domainerrors.ErrInvalidInput, uuid.Nil, errors.New(msg))
}

// transferErrorKinds is checked in order; the first match becomes the error kind.
var transferErrorKinds = []error{
	domainerrors.ErrInvalidAmount,
	domainerrors.ErrInvalidAsset,
	domainerrors.ErrInvalidInput,
	domainerrors.ErrInsufficientFunds,
	domainerrors.ErrAccountNotFound,
	domainerrors.ErrWalletNotFound,
	domainerrors.ErrSettlementFailure,
	domainerrors.ErrAlreadyFinalized,
	domainerrors.ErrAlreadyExists,
	domainerrors.ErrNotFound,
	domainerrors.ErrStorageFailure,
}

// asTransferError classifies err into the ledger error taxonomy. Anything
// unrecognised is a storage failure.
func asTransferError(err error, txID uuid.UUID) error {
	var te *domainerrors.TransferError
	if errors.As(err, &te) {
		if te.TransactionID == uuid.Nil && txID != uuid.Nil {
			return domainerrors.NewTransferError(te.Kind, txID, te.Err)
		}
		return te
	}
	for _, kind := range transferErrorKinds {
		if errors.Is(err, kind) {
			return domainerrors.NewTransferError(kind, txID, err)
		}
	}
	return domainerrors.NewTransferError(domainerrors.ErrStorageFailure, txID, err)
}

// outcomeLabel turns an engine error into a metrics label.
func outcomeLabel(err error) string {
	var te *domainerrors.TransferError
	if errors.As(err, &te) {
		return strings.ReplaceAll(te.Kind.Error(), " ", "_")
	}
	return "error"
}

// reject records a transfer refused before or during its first unit of work.
func (u *LedgerUsecase) reject(kind entities.TransactionKind, err error) error {
	metrics.RecordTransfer(kind, outcomeLabel(err))
	return err
}

func optionalKey(key string) null.String {
	if key == "" {
		return null.String{}
	}
	return null.StringFrom(key)
}

// findByIdempotencyKey returns the record stored under key, or nil when there is none.
func (u *LedgerUsecase) findByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	if key == "" {
		return nil, nil
	}
	tx, err := u.txRepo.GetByIdempotencyKey(ctx, key)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// replayRequest is what a retried request must agree on with the stored record.
type replayRequest struct {
	kind            entities.TransactionKind
	amount          decimal.Decimal
	asset           entities.AssetType
	toAccount       uuid.UUID
	externalAddress string
}

func (r replayRequest) matches(tx *entities.Transaction) bool {
	if tx.Kind != r.kind || tx.AssetType != r.asset || !tx.Amount.Equal(r.amount) {
		return false
	}
	if r.kind == entities.TransactionKindExternal {
		return tx.ToAccount == nil && tx.ExternalAddress.String == r.externalAddress
	}
	return tx.ToAccount != nil && *tx.ToAccount == r.toAccount
}

// replayOf checks that a reused key describes the same request and reports its outcome.
func replayOf(existing *entities.Transaction, req replayRequest) (*entities.TransferResult, error) {
	if !req.matches(existing) {
		return nil, domainerrors.NewTransferError(domainerrors.ErrAlreadyExists, existing.ID,
			errors.New("idempotency key was already used for a different request"))
	}
	if existing.Status == entities.TransactionStatusFailed {
		return nil, domainerrors.NewTransferError(domainerrors.ErrSettlementFailure, existing.ID, failureCause(existing))
	}
	return &entities.TransferResult{
		TransactionID:       existing.ID,
		Status:              existing.Status,
		SettlementReference: existing.SettlementReference.String,
		Replayed:            true,
	}, nil
}

func failureCause(tx *entities.Transaction) error {
	if tx.FailureReason.String == "" {
		return errors.New("settlement failed")
	}
	return errors.New(tx.FailureReason.String)
}

// raceWinner resolves a unique-key collision on Create to the record that got there first.
func (u *LedgerUsecase) raceWinner(ctx context.Context, key string, err error) *entities.Transaction {
	if key == "" || !errors.Is(err, domainerrors.ErrAlreadyExists) {
		return nil
	}
	existing, lookupErr := u.findByIdempotencyKey(ctx, key)
	if lookupErr != nil {
		logger.Warn(ctx, "Idempotency winner lookup failed", zap.Error(lookupErr))
		return nil
	}
	return existing
}

// compensate applies a reversing adjustment. A failed reversal leaves the
// ledger needing manual repair, so it is logged at error level.
func (u *LedgerUsecase) compensate(ctx context.Context, txID uuid.UUID, step string, key entities.WalletKey, delta decimal.Decimal) bool {
	ctx = context.WithoutCancel(ctx)
	if _, err := u.balanceRepo.Adjust(ctx, key, delta, decimal.Zero); err != nil {
		logger.Error(ctx, "Compensation failed, manual reconciliation required",
			zap.String("step", step),
			zap.String("transaction_id", txID.String()),
			zap.String("account_id", key.AccountID.String()),
			zap.String("asset", string(key.AssetType)),
			zap.String("delta", delta.String()),
			zap.Error(err),
		)
		metrics.RecordCompensation(step, false)
		return false
	}
	logger.Warn(ctx, "Compensation applied",
		zap.String("step", step),
		zap.String("transaction_id", txID.String()),
		zap.String("delta", delta.String()),
	)
	metrics.RecordCompensation(step, true)
	return true
}

func (u *LedgerUsecase) notify(ctx context.Context, tx *entities.Transaction, accountID uuid.UUID, outcome entities.NotificationOutcome, reason string) {
	if u.notifier == nil {
		return
	}
	u.notifier.Notify(context.WithoutCancel(ctx), entities.Notification{
		AccountID:     accountID,
		TransactionID: tx.ID,
		Outcome:       outcome,
		Amount:        tx.Amount,
		AssetType:     tx.AssetType,
		Reason:        reason,
		OccurredAt:    u.now(),
	})
}
