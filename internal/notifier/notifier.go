package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/swiftparcel/delivery/internal/broker/messages"
	"github.com/swiftparcel/delivery/internal/integrations/customersvc"
	"github.com/swiftparcel/delivery/internal/models"
)

type TrackingPusher interface {
	Push(ctx context.Context, snap models.TrackingSnapshot) error
}

type CustomerDirectory interface {
	GetCustomerByID(ctx context.Context, id uuid.UUID) (*customersvc.Customer, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Notifier fans order changes out to the tracking side. Delivery is
// best-effort: order state in Postgres is authoritative and the tracking
// service re-reads it on demand, so a lost notification degrades freshness,
// never correctness.
type Notifier struct {
	pusher    TrackingPusher
	customers CustomerDirectory
	producer  Producer
	topic     string

	queue     chan job
	attempts  int
	baseDelay time.Duration
	sleep     func(time.Duration)
}

type job struct {
	orderID     uuid.UUID
	orderNumber string
	customerID  uuid.UUID
	status      models.OrderStatus
	updatedAt   time.Time
}

func New(pusher TrackingPusher, customers CustomerDirectory, producer Producer, topic string, queueSize int, baseDelay time.Duration) *Notifier {
	if queueSize <= 0 {
		queueSize = 256
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &Notifier{
		pusher:    pusher,
		customers: customers,
		producer:  producer,
		topic:     topic,
		queue:     make(chan job, queueSize),
		attempts:  3,
		baseDelay: baseDelay,
		sleep:     time.Sleep,
	}
}

// Enqueue never blocks the caller. On overflow the job is dropped and logged;
// the reconciler repairs the cache on the next read.
func (n *Notifier) Enqueue(o *models.Order) {
	j := job{
		orderID:     o.ID,
		orderNumber: o.OrderNumber,
		customerID:  o.CustomerID,
		status:      o.Status,
		updatedAt:   o.UpdatedAt,
	}
	select {
	case n.queue <- j:
	default:
		slog.Warn("notifier queue full, dropping", "order_number", j.orderNumber)
	}
}

func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-n.queue:
			n.dispatch(ctx, j)
		}
	}
}

func (n *Notifier) dispatch(ctx context.Context, j job) {
	// Tracking keys ownership by user id, so resolve it through the customer
	// directory. If the directory is down, the customer id stands in: better a
	// snapshot with a repairable owner than no snapshot at all.
	userID := j.customerID
	if n.customers != nil {
		cu, err := n.customers.GetCustomerByID(ctx, j.customerID)
		if err != nil {
			slog.Warn("resolve customer for notification", "customer_id", j.customerID, "error", err.Error())
		} else {
			userID = cu.UserID
		}
	}

	snap := models.TrackingSnapshot{
		OrderID:     j.orderID,
		OrderNumber: j.orderNumber,
		UserID:      userID,
		Status:      j.status,
		UpdatedAt:   j.updatedAt,
	}

	if n.producer != nil {
		msg := messages.OrderUpdated{
			OrderID:     j.orderID,
			OrderNumber: j.orderNumber,
			UserID:      userID,
			Status:      string(j.status),
			UpdatedAt:   j.updatedAt,
		}
		if b, err := json.Marshal(msg); err == nil {
			if err := n.producer.Publish(ctx, n.topic, []byte(j.orderNumber), b); err != nil {
				slog.Warn("publish order update", "order_number", j.orderNumber, "error", err.Error())
			}
		}
	}

	var lastErr error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		if err := n.pusher.Push(ctx, snap); err == nil {
			return
		} else {
			lastErr = err
		}
		if attempt < n.attempts {
			n.sleep(n.baseDelay * time.Duration(attempt))
		}
	}
	slog.Error("push tracking snapshot, giving up",
		"order_number", j.orderNumber,
		"attempts", n.attempts,
		"error", lastErr.Error(),
	)
}
