package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
	"paymenow.backend/pkg/utils"
)

// BalanceRepository is the in-memory balance store
type BalanceRepository struct {
	s *Store
}

func NewBalanceRepository(s *Store) *BalanceRepository {
	return &BalanceRepository{s: s}
}

// Adjust applies delta under the store lock; the check and the write are one step.
func (r *BalanceRepository) Adjust(ctx context.Context, key entities.WalletKey, delta, minimum decimal.Decimal) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.balances[key]
	if !ok {
		return decimal.Zero, domainerrors.ErrInsufficientFunds
	}
	next := w.Balance.Add(delta)
	if next.LessThan(minimum) {
		return decimal.Zero, domainerrors.ErrInsufficientFunds
	}
	w.Balance = next
	w.Version++
	w.UpdatedAt = time.Now().UTC()
	return next, nil
}

func (r *BalanceRepository) Get(ctx context.Context, key entities.WalletKey) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if w, ok := r.s.balances[key]; ok {
		return w.Balance, nil
	}
	return decimal.Zero, nil
}

func (r *BalanceRepository) Upsert(ctx context.Context, key entities.WalletKey, initial decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.balances[key]; ok {
		return nil
	}
	now := time.Now().UTC()
	r.s.balances[key] = &entities.WalletBalance{
		ID:        utils.GenerateUUIDv7(),
		AccountID: key.AccountID,
		AssetType: key.AssetType,
		Balance:   initial,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (r *BalanceRepository) Exists(ctx context.Context, key entities.WalletKey) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.balances[key]
	return ok, nil
}

func (r *BalanceRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*entities.WalletBalance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entities.WalletBalance
	for key, w := range r.s.balances {
		if key.AccountID == accountID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetType < out[j].AssetType })
	return out, nil
}

// Total sums every balance of one asset across all accounts.
func (r *BalanceRepository) Total(asset entities.AssetType) decimal.Decimal {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total := decimal.Zero
	for key, w := range r.s.balances {
		if key.AssetType == asset {
			total = total.Add(w.Balance)
		}
	}
	return total
}
