package orders_api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swiftparcel/delivery/internal/api/httpx"
	"github.com/swiftparcel/delivery/internal/apperr"
	"github.com/swiftparcel/delivery/internal/auth"
	"github.com/swiftparcel/delivery/internal/models"
	"github.com/swiftparcel/delivery/internal/services/orders"
)

type API struct {
	svc      *orders.Service
	verifier *auth.Verifier
	apiKey   string
}

func New(svc *orders.Service, verifier *auth.Verifier, apiKey string) *API {
	return &API{svc: svc, verifier: verifier, apiKey: apiKey}
}

func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(auth.Middleware(a.verifier))
		r.Post("/", a.create)
		r.Get("/", a.listAll)
		r.Get("/me", a.listMine)
		r.Get("/{id}", a.get)
		r.Put("/{id}", a.update)
		r.Put("/{id}/cancel", a.cancel)
	})

	r.Route("/api/internal/orders", func(r chi.Router) {
		r.Use(httpx.RequireAPIKey(a.apiKey))
		r.Get("/{id}", a.getInternal)
		r.Get("/by-number/{orderNumber}", a.getInternalByNumber)
	})

	return r
}

type createItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int32  `json:"quantity" validate:"required,gt=0"`
}

type createOrderRequest struct {
	CustomerID      string              `json:"customerId" validate:"omitempty,uuid"`
	DeliveryAddress string              `json:"deliveryAddress" validate:"required"`
	Items           []createItemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateOrderRequest struct {
	Status                *string    `json:"status" validate:"omitempty,oneof=PENDING SHIPPED DELIVERED CANCELLED"`
	DeliveryAddress       *string    `json:"deliveryAddress" validate:"omitempty,min=1"`
	EstimatedDeliveryDate *time.Time `json:"estimatedDeliveryDate"`
}

type itemResponse struct {
	ProductID      uuid.UUID `json:"productId"`
	ProductName    string    `json:"productName"`
	Quantity       int32     `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
}

type orderResponse struct {
	ID                    uuid.UUID      `json:"id"`
	OrderNumber           string         `json:"orderNumber"`
	CustomerID            uuid.UUID      `json:"customerId"`
	DeliveryAddress       string         `json:"deliveryAddress"`
	Status                string         `json:"status"`
	OrderDate             time.Time      `json:"orderDate"`
	EstimatedDeliveryDate *time.Time     `json:"estimatedDeliveryDate,omitempty"`
	TotalAmountCents      int64          `json:"totalAmountCents"`
	Items                 []itemResponse `json:"items"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.Unauthenticated("missing bearer token"))
		return
	}

	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	in := orders.CreateOrderInput{DeliveryAddress: req.DeliveryAddress}
	if req.CustomerID != "" {
		// Format already checked by the validate tag.
		in.CustomerID, _ = uuid.Parse(req.CustomerID)
	}
	for _, it := range req.Items {
		pid, _ := uuid.Parse(it.ProductID)
		in.Items = append(in.Items, orders.CreateItemInput{
			ProductID: pid,
			Quantity:  it.Quantity,
		})
	}

	o, err := a.svc.Create(r.Context(), p, in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResponse(o))
}

func (a *API) listAll(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.Unauthenticated("missing bearer token"))
		return
	}

	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	os, err := a.svc.ListAll(r.Context(), p, limit, offset)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponses(os))
}

func (a *API) listMine(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.Unauthenticated("missing bearer token"))
		return
	}

	os, err := a.svc.ListMine(r.Context(), p)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponses(os))
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.Unauthenticated("missing bearer token"))
		return
	}

	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	o, err := a.svc.Get(r.Context(), p, id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(o))
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.Unauthenticated("missing bearer token"))
		return
	}

	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req updateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	o, err := a.svc.Update(r.Context(), p, id, orders.UpdateOrderInput{
		Status:                req.Status,
		DeliveryAddress:       req.DeliveryAddress,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(o))
}

func (a *API) cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.Unauthenticated("missing bearer token"))
		return
	}

	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	o, err := a.svc.Cancel(r.Context(), p, id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(o))
}

func (a *API) getInternal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	o, err := a.svc.GetInternal(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(o))
}

func (a *API) getInternalByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := a.svc.GetInternalByNumber(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(o))
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.Invalid("malformed order id")
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return n
}

func toResponse(o *models.Order) orderResponse {
	items := make([]itemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemResponse{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	return orderResponse{
		ID:                    o.ID,
		OrderNumber:           o.OrderNumber,
		CustomerID:            o.CustomerID,
		DeliveryAddress:       o.DeliveryAddress,
		Status:                string(o.Status),
		OrderDate:             o.OrderDate,
		EstimatedDeliveryDate: o.EstimatedDeliveryDate,
		TotalAmountCents:      o.TotalAmountCents,
		Items:                 items,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

func toResponses(os []*models.Order) []orderResponse {
	out := make([]orderResponse, 0, len(os))
	for _, o := range os {
		out = append(out, toResponse(o))
	}
	return out
}
