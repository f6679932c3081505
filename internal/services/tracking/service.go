package tracking

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/swiftparcel/delivery/internal/apperr"
	"github.com/swiftparcel/delivery/internal/auth"
	"github.com/swiftparcel/delivery/internal/cache"
	"github.com/swiftparcel/delivery/internal/integrations/customersvc"
	"github.com/swiftparcel/delivery/internal/integrations/ordersvc"
	"github.com/swiftparcel/delivery/internal/models"
)

const keyPrefix = "tracking:order:"

type OrderSource interface {
	GetOrderByNumber(ctx context.Context, orderNumber string) (*ordersvc.Order, error)
}

type CustomerDirectory interface {
	GetCustomerByID(ctx context.Context, id uuid.UUID) (*customersvc.Customer, error)
}

// Service keeps the tracking cache convergent with the order service. The
// cache is an accelerator only: every read checks the source of truth when it
// is reachable, repairing stale entries in place.
type Service struct {
	cache     cache.BytesCache
	source    OrderSource
	customers CustomerDirectory
	ttl       time.Duration
}

func New(c cache.BytesCache, source OrderSource, customers CustomerDirectory, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{cache: c, source: source, customers: customers, ttl: ttl}
}

// Put upserts a snapshot pushed by the order side. Re-delivery of the same
// snapshot is harmless; the entry is simply written again.
func (s *Service) Put(ctx context.Context, snap models.TrackingSnapshot) error {
	if snap.OrderNumber == "" {
		return apperr.Invalid("orderNumber is required")
	}
	if _, err := models.ParseOrderStatus(string(snap.Status)); err != nil {
		return apperr.Invalid("unknown order status %q", snap.Status)
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now().UTC()
	}
	return s.write(ctx, snap)
}

func (s *Service) Delete(ctx context.Context, orderNumber string) error {
	if orderNumber == "" {
		return apperr.Invalid("orderNumber is required")
	}
	return s.cache.Delete(ctx, keyPrefix+orderNumber)
}

// Resolve returns the current snapshot for an order number.
//
// The cache is consulted first (unless forceRefresh), then the order service
// is asked regardless of a hit: an authoritative answer always wins over the
// cached one. Only when the order service is unreachable does a cached entry
// get served as-is.
func (s *Service) Resolve(ctx context.Context, orderNumber string, forceRefresh bool) (models.TrackingSnapshot, error) {
	if orderNumber == "" {
		return models.TrackingSnapshot{}, apperr.Invalid("orderNumber is required")
	}
	key := keyPrefix + orderNumber

	var cached *models.TrackingSnapshot
	if !forceRefresh {
		cached = s.readCached(ctx, key)
	}

	snap, err := s.loadFromSource(ctx, orderNumber)
	if err != nil {
		if apperr.IsNotFound(err) {
			// The order is gone; a cached entry must not outlive it.
			_ = s.cache.Delete(ctx, key)
			return models.TrackingSnapshot{}, err
		}
		if cached == nil {
			cached = s.readCached(ctx, key)
		}
		if cached != nil {
			slog.Warn("order service unreachable, serving cached snapshot",
				"order_number", orderNumber, "error", err.Error())
			return *cached, nil
		}
		return models.TrackingSnapshot{}, err
	}

	if cached != nil {
		if cached.Equal(snap) {
			return *cached, nil
		}
		slog.Info("tracking cache diverged, repairing",
			"order_number", orderNumber,
			"cached_status", cached.Status,
			"actual_status", snap.Status)
	}

	if err := s.write(ctx, snap); err != nil {
		// Cache write failure degrades the next read, not this one.
		slog.Warn("write tracking cache", "order_number", orderNumber, "error", err.Error())
	}
	return snap, nil
}

// ResolveFor is Resolve behind the access gate: admins see any order, a user
// only their own.
func (s *Service) ResolveFor(ctx context.Context, p auth.Principal, orderNumber string, forceRefresh bool) (models.TrackingSnapshot, error) {
	snap, err := s.Resolve(ctx, orderNumber, forceRefresh)
	if err != nil {
		return models.TrackingSnapshot{}, err
	}
	if p.Allowed(auth.ActionViewAnyTracking) {
		return snap, nil
	}
	if snap.UserID != p.UserID {
		return models.TrackingSnapshot{}, apperr.Forbidden("tracking for %s belongs to another user", orderNumber)
	}
	return snap, nil
}

func (s *Service) loadFromSource(ctx context.Context, orderNumber string) (models.TrackingSnapshot, error) {
	o, err := s.source.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return models.TrackingSnapshot{}, err
	}

	status, err := models.ParseOrderStatus(o.Status)
	if err != nil {
		return models.TrackingSnapshot{}, errors.Wrap(err, "order service returned")
	}

	userID := o.CustomerID
	if s.customers != nil {
		cu, err := s.customers.GetCustomerByID(ctx, o.CustomerID)
		if err != nil {
			slog.Warn("resolve customer for tracking", "customer_id", o.CustomerID, "error", err.Error())
		} else {
			userID = cu.UserID
		}
	}

	return models.TrackingSnapshot{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      userID,
		Status:      status,
		UpdatedAt:   o.UpdatedAt,
	}, nil
}

// readCached returns nil on miss, cache failure or a corrupt entry. Corrupt
// entries are purged so the next read starts clean.
func (s *Service) readCached(ctx context.Context, key string) *models.TrackingSnapshot {
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("read tracking cache", "key", key, "error", err.Error())
		return nil
	}
	if !ok {
		return nil
	}

	var snap models.TrackingSnapshot
	if err := json.Unmarshal(b, &snap); err != nil || snap.OrderNumber == "" {
		slog.Warn("corrupt tracking cache entry, purging", "key", key)
		_ = s.cache.Delete(ctx, key)
		return nil
	}
	return &snap
}

func (s *Service) write(ctx context.Context, snap models.TrackingSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	return s.cache.Set(ctx, keyPrefix+snap.OrderNumber, b, s.ttl)
}
