package ordersvc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/swiftparcel/delivery/internal/apperr"
)

// Order is the lookup contract exposed by the order service for internal
// callers. Line items are not part of it; tracking only needs the status row.
type Order struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"orderNumber"`
	CustomerID  uuid.UUID `json:"customerId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8081"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return c.get(ctx, c.baseURL+"/api/internal/orders/"+id.String())
}

func (c *Client) GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return c.get(ctx, c.baseURL+"/api/internal/orders/by-number/"+orderNumber)
}

func (c *Client) get(ctx context.Context, url string) (*Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperr.Unavailable("order service unreachable: %v", err)
	}
	defer resp.Body.Close()

	// 404 is a clean "no such order", distinct from transport failure.
	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.NotFound("order not found")
	}
	if resp.StatusCode/100 != 2 {
		return nil, apperr.Unavailable("order service http %d", resp.StatusCode)
	}

	var o Order
	if err := json.NewDecoder(resp.Body).Decode(&o); err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return &o, nil
}
