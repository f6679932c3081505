package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// transitions is the full order state machine. A status missing from the map
// is terminal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(strings.ToUpper(s)) {
	case OrderStatusPending:
		return OrderStatusPending, nil
	case OrderStatusShipped:
		return OrderStatusShipped, nil
	case OrderStatusDelivered:
		return OrderStatusDelivered, nil
	case OrderStatusCancelled:
		return OrderStatusCancelled, nil
	}
	return "", errors.Errorf("unknown order status %q", s)
}

// CanTransition reports whether from -> to is a legal edge. Setting the same
// status again is allowed so that address-only updates pass through.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type LineItem struct {
	ProductID      uuid.UUID
	ProductName    string
	Quantity       int32
	UnitPriceCents int64
}

type Order struct {
	ID                    uuid.UUID
	OrderNumber           string
	CustomerID            uuid.UUID
	DeliveryAddress       string
	Status                OrderStatus
	OrderDate             time.Time
	EstimatedDeliveryDate *time.Time
	TotalAmountCents      int64
	Items                 []LineItem
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ComputeTotal recalculates TotalAmountCents from the line items. Unit prices
// are snapshots taken at creation time and never change afterwards.
func (o *Order) ComputeTotal() {
	var total int64
	for _, it := range o.Items {
		total += it.UnitPriceCents * int64(it.Quantity)
	}
	o.TotalAmountCents = total
}

// NewOrderNumber generates the human-readable order key, e.g. "ORD-3F2A9C01".
// Assigned exactly once, before first persistence.
func NewOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}
