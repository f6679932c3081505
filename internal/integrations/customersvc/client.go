package customersvc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/swiftparcel/delivery/internal/apperr"
)

type Customer struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"userId"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Enabled bool      `json:"enabled"`
}

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8083"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) GetCustomerByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return c.get(ctx, c.baseURL+"/api/customers/"+id.String())
}

func (c *Client) GetCustomerByUserID(ctx context.Context, userID uuid.UUID) (*Customer, error) {
	return c.get(ctx, c.baseURL+"/api/customers/by-user/"+userID.String())
}

func (c *Client) get(ctx context.Context, url string) (*Customer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperr.Unavailable("customer service unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.NotFound("customer not found")
	}
	if resp.StatusCode/100 != 2 {
		return nil, apperr.Unavailable("customer service http %d", resp.StatusCode)
	}

	var cu Customer
	if err := json.NewDecoder(resp.Body).Decode(&cu); err != nil {
		return nil, errors.Wrap(err, "decode customer")
	}
	return &cu, nil
}
