package productsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/swiftparcel/delivery/internal/apperr"
)

// Validation is the catalog's answer to "does this product exist". A missing
// product is a clean Exists=false response, not an error: order creation uses
// it to reject unknown ids.
type Validation struct {
	Exists     bool      `json:"exists"`
	ProductID  uuid.UUID `json:"productId"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"priceCents"`
}

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8084"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) ValidateProduct(ctx context.Context, id uuid.UUID) (Validation, error) {
	url := c.baseURL + "/api/products/" + id.String() + "/validate"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Validation{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Validation{}, apperr.Unavailable("product service unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Validation{Exists: false, ProductID: id}, nil
	}
	if resp.StatusCode/100 != 2 {
		return Validation{}, apperr.Unavailable("product service http %d", resp.StatusCode)
	}

	var v Validation
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Validation{}, errors.Wrap(err, "decode validation")
	}
	return v, nil
}
