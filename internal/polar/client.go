// Package polar is a minimal HTTP client for the Polar REST API covering
// the checkout, product, subscription, customer and order endpoints this
// service drives.
package polar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/solvance/cashier-polar/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	orgID      string
	log        *zap.Logger
}

func New(p Params) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    p.Config.PolarBaseURL(),
		token:      p.Config.PolarAccessToken,
		orgID:      p.Config.PolarOrganizationID,
		log:        p.Log.Named("polar.client"),
	}
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("polar api error: status=%d detail=%s", e.StatusCode, e.Detail)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		if err := json.Unmarshal(payload, &detail); err == nil {
			apiErr.Detail = detail.Detail
			if apiErr.Detail == "" {
				apiErr.Detail = detail.Error
			}
		}
		if apiErr.Detail == "" {
			apiErr.Detail = strings.TrimSpace(string(payload))
		}
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}
