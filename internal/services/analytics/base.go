package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TradePilot/pkg/config"
	xhttp "TradePilot/pkg/http"
)

// HTTPServiceBase is the shared foundation of the model service clients.
// It owns a rate limited HTTP client and the service base URL.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds a client for baseURL with the analytics timeout
// and rate limit from config.
func NewHTTPServiceBase(cfg *config.Config, baseURL string) *HTTPServiceBase {
	timeout := cfg.Analytics.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithRateLimit(cfg.Analytics.RatePerSec, cfg.Analytics.Burst),
		),
	}
}

// Configured reports whether a base URL was set.
func (b *HTTPServiceBase) Configured() bool {
	return b != nil && b.baseURL != ""
}

// PostJSON posts payload to path under baseURL and decodes the JSON reply into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if !b.Configured() {
		return fmt.Errorf("analytics http client not initialized")
	}
	if err := b.client.PostJSON(ctx, b.baseURL+path, payload, dest); err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// GetJSON issues a GET to path under baseURL.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if !b.Configured() {
		return fmt.Errorf("analytics http client not initialized")
	}
	if err := b.client.GetJSON(ctx, b.baseURL+path, query, dest); err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}
