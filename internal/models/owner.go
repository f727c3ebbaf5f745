package models

import (
	"time"

	"github.com/google/uuid"
)

// Owner is an account that registers items and reads their feedback.
type Owner struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
