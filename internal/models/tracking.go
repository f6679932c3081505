package models

import (
	"time"

	"github.com/google/uuid"
)

// TrackingSnapshot is the cached projection of an order's current status,
// keyed by order number. It may lag behind the order service; reads reconcile
// against the source of truth.
type TrackingSnapshot struct {
	OrderID     uuid.UUID   `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	UserID      uuid.UUID   `json:"userId"`
	Status      OrderStatus `json:"status"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Equal reports whether two snapshots carry the same observable state. Used by
// the reconciler to detect cache divergence.
func (t TrackingSnapshot) Equal(other TrackingSnapshot) bool {
	return t.OrderID == other.OrderID &&
		t.OrderNumber == other.OrderNumber &&
		t.UserID == other.UserID &&
		t.Status == other.Status &&
		t.UpdatedAt.Equal(other.UpdatedAt)
}
