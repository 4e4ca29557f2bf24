package models

import (
	"time"

	"github.com/google/uuid"
)

// Account rows are written by the identity service.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"type:varchar(255);not null"`
	Name      string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time
}

func (Account) TableName() string {
	return "accounts"
}
