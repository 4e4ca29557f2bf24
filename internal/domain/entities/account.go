package entities

import (
	"time"

	"github.com/google/uuid"
)

// Account is the profile record owned by the identity service. The ledger only reads it.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
