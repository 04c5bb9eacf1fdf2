package entity

import (
	"time"

	"github.com/google/uuid"
)

// Subject is the person whose vaccination history is tracked.
type Subject struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
