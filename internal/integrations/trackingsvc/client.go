package trackingsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/swiftparcel/delivery/internal/apperr"
	"github.com/swiftparcel/delivery/internal/models"
)

// Client pushes tracking snapshots into the tracking service's ingest
// endpoint. Service-to-service channel: a static API key, no user credential.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8082"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Push(ctx context.Context, snap models.TrackingSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tracking", bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperr.Unavailable("tracking service unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return apperr.Unavailable("tracking service http %d", resp.StatusCode)
	}
	return nil
}
