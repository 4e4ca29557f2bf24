package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/pkg/utils"
)

// TransactionRepository is the in-memory transaction log
type TransactionRepository struct {
	s *Store
}

func NewTransactionRepository(s *Store) *TransactionRepository {
	return &TransactionRepository{s: s}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if tx.IdempotencyKey.Valid {
		if _, dup := r.s.byKey[tx.IdempotencyKey.String]; dup {
			return domainerrors.ErrAlreadyExists
		}
	}
	if tx.ID == uuid.Nil {
		tx.ID = utils.GenerateUUIDv7()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.UpdatedAt = tx.CreatedAt

	cp := *tx
	r.s.transactions[cp.ID] = &cp
	if cp.IdempotencyKey.Valid {
		r.s.byKey[cp.IdempotencyKey.String] = cp.ID
	}
	return nil
}

func (r *TransactionRepository) Finalize(ctx context.Context, id uuid.UUID, status entities.TransactionStatus, reference, reason string) error {
	if !status.Terminal() {
		return domainerrors.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, err := r.pendingLocked(id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	tx.Status = status
	tx.UpdatedAt = now
	tx.FinalizedAt = &now
	if reference != "" {
		tx.SettlementReference = null.StringFrom(reference)
	}
	if reason != "" {
		tx.FailureReason = null.StringFrom(reason)
	}
	return nil
}

func (r *TransactionRepository) AttachReference(ctx context.Context, id uuid.UUID, reference string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, err := r.pendingLocked(id)
	if err != nil {
		return err
	}
	tx.SettlementReference = null.StringFrom(reference)
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *TransactionRepository) pendingLocked(id uuid.UUID) (*entities.Transaction, error) {
	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	if tx.Status != entities.TransactionStatusPending {
		return nil, domainerrors.ErrAlreadyFinalized
	}
	return tx, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if tx, ok := r.s.transactions[id]; ok {
		cp := *tx
		return &cp, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	r.s.mu.RLock()
	id, ok := r.s.byKey[key]
	r.s.mu.RUnlock()
	if !ok || key == "" {
		return nil, domainerrors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*entities.Transaction, error) {
	if reference == "" {
		return nil, domainerrors.ErrNotFound
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, tx := range r.s.transactions {
		if tx.SettlementReference.Valid && tx.SettlementReference.String == reference {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) ([]*entities.Transaction, error) {
	matched := r.matching(accountID, filter)
	if filter.BeforeTime != nil && filter.BeforeID != nil {
		cursor := &entities.Transaction{CreatedAt: *filter.BeforeTime, ID: *filter.BeforeID}
		kept := matched[:0]
		for _, tx := range matched {
			if newerFirst(cursor, tx) {
				kept = append(kept, tx)
			}
		}
		matched = kept
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*entities.Transaction{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *TransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID, filter entities.TransactionFilter) (int64, error) {
	return int64(len(r.matching(accountID, filter))), nil
}

func (r *TransactionRepository) GetStalePending(ctx context.Context, kind entities.TransactionKind, olderThan time.Time, limit int) ([]*entities.Transaction, error) {
	r.s.mu.RLock()
	var out []*entities.Transaction
	for _, tx := range r.s.transactions {
		if tx.Kind == kind && tx.Status == entities.TransactionStatusPending && tx.CreatedAt.Before(olderThan) {
			cp := *tx
			out = append(out, &cp)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// matching returns copies of the account's records that pass filter, newest first.
func (r *TransactionRepository) matching(accountID uuid.UUID, filter entities.TransactionFilter) []*entities.Transaction {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entities.Transaction
	for _, tx := range r.s.transactions {
		if !tx.Involves(accountID) {
			continue
		}
		if filter.From != nil && tx.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.CreatedAt.After(*filter.To) {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		cp := *tx
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i], out[j]) })
	return out
}

// newerFirst orders by (created_at, id) descending, the same order the SQL store pages in.
func newerFirst(a, b *entities.Transaction) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return strings.Compare(a.ID.String(), b.ID.String()) > 0
}
