package memory

import (
	"context"

	"github.com/google/uuid"
	"paymenow.backend/internal/domain/entities"
	domainerrors "paymenow.backend/internal/domain/errors"
)

// AccountRepository reads the accounts registered with Store.AddAccount
type AccountRepository struct {
	s *Store
}

func NewAccountRepository(s *Store) *AccountRepository {
	return &AccountRepository{s: s}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if acc, ok := r.s.accounts[id]; ok {
		cp := *acc
		return &cp, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (r *AccountRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.accounts[id]
	return ok, nil
}
