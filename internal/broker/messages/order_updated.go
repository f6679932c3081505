package messages

import (
	"time"

	"github.com/google/uuid"
)

// OrderUpdated is published on every successful order mutation. It carries the
// same snapshot shape the tracking ingest endpoint accepts, so consumers can
// apply it as an idempotent upsert.
type OrderUpdated struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}
