package repositories

import (
	"context"

	"github.com/google/uuid"
	"paymenow.backend/internal/domain/entities"
)

// AccountRepository is a read-only view of the account directory
type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
