package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/internal/infrastructure/models"
	"paymenow.backend/pkg/utils"
)

// TransactionRepository implements transaction log data operations
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a record. A reused idempotency key fails with ErrAlreadyExists.
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = utils.GenerateUUIDv7()
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = tx.CreatedAt

	m := toTransactionModel(tx)
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Finalize moves a PENDING record to a terminal status. Only the first call wins.
func (r *TransactionRepository) Finalize(ctx context.Context, id uuid.UUID, status entities.TransactionStatus, reference, reason string) error {
	if !status.Terminal() {
		return domainerrors.ErrInvalidInput
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       string(status),
		"finalized_at": now,
		"updated_at":   now,
	}
	if reference != "" {
		updates["settlement_reference"] = reference
	}
	if reason != "" {
		updates["failure_reason"] = reason
	}

	return r.updatePending(ctx, id, updates)
}

// AttachReference stores the settlement reference on a record still in PENDING
func (r *TransactionRepository) AttachReference(ctx context.Context, id uuid.UUID, reference string) error {
	return r.updatePending(ctx, id, map[string]interface{}{
		"settlement_reference": reference,
		"updated_at":           time.Now().UTC(),
	})
}

func (r *TransactionRepository) updatePending(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	db := GetDB(ctx, r.db).WithContext(ctx)
	result := db.Model(&models.LedgerTransaction{}).
		Where("id = ? AND status = ?", id, string(entities.TransactionStatusPending)).
		Updates(updates)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.LedgerTransaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return domainerrors.ErrNotFound
	}
	return domainerrors.ErrAlreadyFinalized
}

// GetByID gets a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByIdempotencyKey gets the transaction recorded under a scoped idempotency key
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	if key == "" {
		return nil, domainerrors.ErrNotFound
	}
	return r.first(ctx, "idempotency_key = ?", key)
}

// GetByReference gets the transaction settled under the given reference
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*entities.Transaction, error) {
	if reference == "" {
		return nil, domainerrors.ErrNotFound
	}
	return r.first(ctx, "settlement_reference = ?", reference)
}

func (r *TransactionRepository) first(ctx context.Context, query string, args ...interface{}) (*entities.Transaction, error) {
	var m models.LedgerTransaction
	if err := GetDB(ctx, r.db).WithContext(ctx).Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, translateError(err)
	}
	return toTransactionEntity(&m), nil
}

// ListByAccount returns one page of an account's history, newest first
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) ([]*entities.Transaction, error) {
	q := r.accountScope(ctx, accountID, filter)
	if filter.BeforeTime != nil && filter.BeforeID != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", *filter.BeforeTime, *filter.BeforeTime, *filter.BeforeID)
	}
	q = q.Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var ms []models.LedgerTransaction
	if err := q.Find(&ms).Error; err != nil {
		return nil, translateError(err)
	}
	return toTransactionEntities(ms), nil
}

// CountByAccount counts the account's records matching filter, ignoring paging
func (r *TransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) (int64, error) {
	var total int64
	if err := r.accountScope(ctx, accountID, filter).Count(&total).Error; err != nil {
		return 0, translateError(err)
	}
	return total, nil
}

func (r *TransactionRepository) accountScope(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) *gorm.DB {
	q := GetDB(ctx, r.db).WithContext(ctx).Model(&models.LedgerTransaction{}).
		Where("(from_account = ? OR to_account = ?)", accountID, accountID)
	if filter.From != nil {
		q = q.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", filter.To.UTC())
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	return q
}

// GetStalePending returns PENDING records of the given kind created before olderThan, oldest first
func (r *TransactionRepository) GetStalePending(ctx context.Context, kind entities.TransactionKind, olderThan time.Time, limit int) ([]*entities.Transaction, error) {
	q := GetDB(ctx, r.db).WithContext(ctx).
		Where("kind = ? AND status = ? AND created_at < ?", string(kind), string(entities.TransactionStatusPending), olderThan.UTC()).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var ms []models.LedgerTransaction
	if err := q.Find(&ms).Error; err != nil {
		return nil, translateError(err)
	}
	return toTransactionEntities(ms), nil
}

func toTransactionModel(tx *entities.Transaction) *models.LedgerTransaction {
	return &models.LedgerTransaction{
		ID:                  tx.ID,
		IdempotencyKey:      tx.IdempotencyKey.Ptr(),
		FromAccount:         tx.FromAccount,
		ToAccount:           tx.ToAccount,
		ExternalAddress:     tx.ExternalAddress.Ptr(),
		Amount:              tx.Amount,
		AssetType:           string(tx.AssetType),
		Kind:                string(tx.Kind),
		Status:              string(tx.Status),
		SettlementReference: tx.SettlementReference.Ptr(),
		FailureReason:       tx.FailureReason.Ptr(),
		Memo:                tx.Memo,
		CreatedAt:           tx.CreatedAt,
		UpdatedAt:           tx.UpdatedAt,
		FinalizedAt:         tx.FinalizedAt,
	}
}

func toTransactionEntity(m *models.LedgerTransaction) *entities.Transaction {
	return &entities.Transaction{
		ID:                  m.ID,
		IdempotencyKey:      null.StringFromPtr(m.IdempotencyKey),
		FromAccount:         m.FromAccount,
		ToAccount:           m.ToAccount,
		ExternalAddress:     null.StringFromPtr(m.ExternalAddress),
		Amount:              m.Amount,
		AssetType:           entities.AssetType(m.AssetType),
		Kind:                entities.TransactionKind(m.Kind),
		Status:              entities.TransactionStatus(m.Status),
		SettlementReference: null.StringFromPtr(m.SettlementReference),
		FailureReason:       null.StringFromPtr(m.FailureReason),
		Memo:                m.Memo,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
		FinalizedAt:         m.FinalizedAt,
	}
}

func toTransactionEntities(ms []models.LedgerTransaction) []*entities.Transaction {
	out := make([]*entities.Transaction, 0, len(ms))
	for i := range ms {
		out = append(out, toTransactionEntity(&ms[i]))
	}
	return out
}
