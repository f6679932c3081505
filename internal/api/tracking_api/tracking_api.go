package tracking_api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swiftparcel/delivery/internal/api/httpx"
	"github.com/swiftparcel/delivery/internal/apperr"
	"github.com/swiftparcel/delivery/internal/auth"
	"github.com/swiftparcel/delivery/internal/models"
	"github.com/swiftparcel/delivery/internal/services/tracking"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type API struct {
	svc      *tracking.Service
	verifier *auth.Verifier
	apiKey   string

	rl             RateLimiter
	limitPerMinute int64
}

func New(svc *tracking.Service, verifier *auth.Verifier, apiKey string, rl RateLimiter, limitPerMinute int64) *API {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	return &API{svc: svc, verifier: verifier, apiKey: apiKey, rl: rl, limitPerMinute: limitPerMinute}
}

func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api/tracking", func(r chi.Router) {
		r.With(httpx.RequireAPIKey(a.apiKey)).Post("/", a.put)
		r.With(httpx.RequireAPIKey(a.apiKey)).Delete("/{orderNumber}", a.delete)
		r.With(auth.Middleware(a.verifier)).Get("/{orderNumber}", a.get)
	})

	return r
}

type putSnapshotRequest struct {
	OrderID     string    `json:"orderId" validate:"required,uuid"`
	OrderNumber string    `json:"orderNumber" validate:"required"`
	UserID      string    `json:"userId" validate:"required,uuid"`
	Status      string    `json:"status" validate:"required,oneof=PENDING SHIPPED DELIVERED CANCELLED"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type snapshotResponse struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (a *API) put(w http.ResponseWriter, r *http.Request) {
	var req putSnapshotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	orderID, _ := uuid.Parse(req.OrderID)
	userID, _ := uuid.Parse(req.UserID)
	snap := models.TrackingSnapshot{
		OrderID:     orderID,
		OrderNumber: req.OrderNumber,
		UserID:      userID,
		Status:      models.OrderStatus(req.Status),
		UpdatedAt:   req.UpdatedAt,
	}
	if err := a.svc.Put(r.Context(), snap); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusNoContent, nil)
}

func (a *API) delete(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Delete(r.Context(), chi.URLParam(r, "orderNumber")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusNoContent, nil)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.Unauthenticated("missing bearer token"))
		return
	}

	if !a.allow(r.Context(), p) {
		httpx.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":   "rate_limited",
			"message": "too many tracking requests, slow down",
		})
		return
	}

	forceRefresh := r.URL.Query().Get("refresh") == "true"
	snap, err := a.svc.ResolveFor(r.Context(), p, chi.URLParam(r, "orderNumber"), forceRefresh)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, snapshotResponse{
		OrderID:     snap.OrderID,
		OrderNumber: snap.OrderNumber,
		Status:      string(snap.Status),
		UpdatedAt:   snap.UpdatedAt,
	})
}

// allow is best-effort: a broken limiter never blocks reads.
func (a *API) allow(ctx context.Context, p auth.Principal) bool {
	if a.rl == nil {
		return true
	}
	key := fmt.Sprintf("rl:tracking:%s:%s", p.UserID, time.Now().UTC().Format("200601021504"))
	allowed, _, err := a.rl.Allow(ctx, key, a.limitPerMinute, 70*time.Second)
	if err != nil {
		return true
	}
	return allowed
}
