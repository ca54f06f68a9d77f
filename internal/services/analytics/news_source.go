package analytics

import (
	"context"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/config"
)

// HTTPNewsSource reads news and announcements from the news aggregation service.
type HTTPNewsSource struct {
	base *HTTPServiceBase
}

func NewHTTPNewsSource(cfg *config.Config) *HTTPNewsSource {
	return &HTTPNewsSource{base: NewHTTPServiceBase(cfg, cfg.Analytics.NewsURL)}
}

type newsResp struct {
	Items []models.NewsItem `json:"items"`
}

type announcementsResp struct {
	Items []models.Announcement `json:"items"`
}

// Configured reports whether a news service URL was set.
func (s *HTTPNewsSource) Configured() bool {
	return s.base.Configured()
}

func (s *HTTPNewsSource) FetchNews(ctx context.Context, symbol string, since time.Time) ([]models.NewsItem, error) {
	var r newsResp
	if err := s.base.GetJSON(ctx, "/news", query(symbol, since), &r); err != nil {
		return nil, fmt.Errorf("fetch news %s: %w", symbol, err)
	}
	for i := range r.Items {
		if r.Items[i].Symbol == "" {
			r.Items[i].Symbol = symbol
		}
	}
	return r.Items, nil
}

func (s *HTTPNewsSource) FetchAnnouncements(ctx context.Context, symbol string, since time.Time) ([]models.Announcement, error) {
	var r announcementsResp
	if err := s.base.GetJSON(ctx, "/announcements", query(symbol, since), &r); err != nil {
		return nil, fmt.Errorf("fetch announcements %s: %w", symbol, err)
	}
	for i := range r.Items {
		if r.Items[i].Symbol == "" {
			r.Items[i].Symbol = symbol
		}
	}
	return r.Items, nil
}

func query(symbol string, since time.Time) map[string][]string {
	q := map[string][]string{"symbol": {symbol}}
	if !since.IsZero() {
		q["since"] = []string{since.UTC().Format(time.RFC3339)}
	}
	return q
}

var _ drepo.NewsSource = (*HTTPNewsSource)(nil)

// NewNewsSource returns nil when no news service is configured; the engine
// then skips its news and announcement monitors.
func NewNewsSource(cfg *config.Config) drepo.NewsSource {
	if cfg.Analytics.NewsURL == "" {
		return nil
	}
	return NewHTTPNewsSource(cfg)
}
