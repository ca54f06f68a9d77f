package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/cache"
	"TradePilot/pkg/logger"
)

const (
	newsCacheSize   = 50
	newsTTL         = 24 * time.Hour
	newsLookback    = 24 * time.Hour
	sentimentTTL    = time.Hour
	announcementTTL = 7 * 24 * time.Hour
)

func newsKey(symbol string) string          { return cache.GenerateKey("news", symbol) }
func sentimentKey(symbol string) string     { return cache.GenerateKey("sentiment", symbol) }
func announcementsKey(symbol string) string { return cache.GenerateKey("announcements", symbol) }
func priceHistoryKey(symbol string) string  { return cache.GenerateKey("prices", symbol) }

func announcementSeenKey(symbol, id string) string {
	return cache.GenerateKeyWithParams("announcement_seen", symbol, id)
}

func (e *Engine) newsCycle(ctx context.Context) error {
	return e.forEachSymbol(ctx, e.refreshNews)
}

// refreshNews merges fresh news into the cached list and rescores the
// symbol's sentiment over it.
func (e *Engine) refreshNews(ctx context.Context, symbol string) error {
	st := e.assets[symbol]
	items, err := e.deps.News.FetchNews(ctx, symbol, e.now().Add(-newsLookback))
	if err != nil {
		e.collaboratorFailed(ctx, st, symbol, "news_source", err)
		return nil
	}
	e.collaboratorRecovered(st, symbol, "news_source")

	cached := e.recentNews(ctx, symbol, 0)
	seen := make(map[string]bool, len(cached))
	for _, n := range cached {
		seen[newsID(n)] = true
	}
	added := 0
	for _, n := range items {
		id := newsID(n)
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := e.deps.KV.AppendToList(ctx, newsKey(symbol), n, newsCacheSize, newsTTL); err != nil {
			e.sinkFailed("kv", symbol, err)
			return nil
		}
		cached = append(cached, n)
		added++
	}
	if len(cached) > newsCacheSize {
		cached = cached[len(cached)-newsCacheSize:]
	}
	e.logger.Debug("news refreshed",
		logger.String("symbol", symbol),
		logger.Int("fetched", len(items)),
		logger.Int("added", added),
	)

	if len(cached) == 0 || !e.deps.Sentiment.Status().Available {
		return nil
	}
	sent, err := e.deps.Sentiment.Score(ctx, cached)
	if err != nil {
		e.collaboratorFailed(ctx, st, symbol, "sentiment_scorer", err)
		return nil
	}
	e.collaboratorRecovered(st, symbol, "sentiment_scorer")

	sent.UpdatedAt = e.now()
	if sent.Articles == 0 {
		sent.Articles = len(cached)
	}
	if err := e.deps.KV.Set(ctx, sentimentKey(symbol), sent, sentimentTTL); err != nil {
		e.sinkFailed("kv", symbol, err)
	}
	return nil
}

func (e *Engine) announcementCycle(ctx context.Context) error {
	return e.forEachSymbol(ctx, e.refreshAnnouncements)
}

// refreshAnnouncements caches new announcements and sends one INFO alert
// per announcement not seen in the last week.
func (e *Engine) refreshAnnouncements(ctx context.Context, symbol string) error {
	st := e.assets[symbol]
	items, err := e.deps.News.FetchAnnouncements(ctx, symbol, e.now().Add(-newsLookback))
	if err != nil {
		e.collaboratorFailed(ctx, st, symbol, "announcement_source", err)
		return nil
	}
	e.collaboratorRecovered(st, symbol, "announcement_source")

	for _, a := range items {
		key := announcementSeenKey(symbol, announcementID(a))
		seen, err := e.deps.KV.Exists(ctx, key)
		if err != nil {
			e.sinkFailed("kv", symbol, err)
			return nil
		}
		if seen {
			continue
		}
		if err := e.deps.KV.Set(ctx, key, a.PublishedAt, announcementTTL); err != nil {
			e.sinkFailed("kv", symbol, err)
			return nil
		}
		if err := e.deps.KV.AppendToList(ctx, announcementsKey(symbol), a, newsCacheSize, announcementTTL); err != nil {
			e.sinkFailed("kv", symbol, err)
		}

		data := map[string]interface{}{"published_at": a.PublishedAt.UTC().Format(time.RFC3339)}
		if a.Category != "" {
			data["category"] = a.Category
		}
		e.alert(ctx, models.AlertInfo, symbol, fmt.Sprintf("New announcement for %s: %s", symbol, a.Title), data)
	}
	return nil
}

// recentNews returns up to limit cached news items, newest last. Zero
// limit returns all of them.
func (e *Engine) recentNews(ctx context.Context, symbol string, limit int) []models.NewsItem {
	var items []models.NewsItem
	if err := e.deps.KV.GetList(ctx, newsKey(symbol), &items); err != nil {
		e.logger.Debug("news cache read failed", logger.String("symbol", symbol), logger.Error(err))
		return nil
	}
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items
}

func (e *Engine) cachedSentiment(ctx context.Context, symbol string) *models.Sentiment {
	var s models.Sentiment
	if err := e.deps.KV.Get(ctx, sentimentKey(symbol), &s); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			e.logger.Debug("sentiment cache read failed", logger.String("symbol", symbol), logger.Error(err))
		}
		return nil
	}
	return &s
}

// warmStart restores the rolling price history saved by the last flush.
func (e *Engine) warmStart(ctx context.Context) {
	restored := 0
	for symbol, st := range e.assets {
		var prices []float64
		if err := e.deps.KV.Get(ctx, priceHistoryKey(symbol), &prices); err != nil {
			if !errors.Is(err, cache.ErrCacheMiss) {
				e.logger.Warn("price history restore failed", logger.String("symbol", symbol), logger.Error(err))
			}
			continue
		}
		if len(prices) > priceHistoryCap {
			prices = prices[len(prices)-priceHistoryCap:]
		}
		st.mu.Lock()
		if len(st.prices) == 0 {
			st.prices = prices
			restored++
		}
		st.mu.Unlock()
	}
	if restored > 0 {
		e.logger.Info("price history restored", logger.Int("symbols", restored))
	}
}

// flush persists the rolling price history for the next warm start.
func (e *Engine) flush(ctx context.Context) error {
	var errs []error
	for symbol, st := range e.assets {
		st.mu.RLock()
		prices := append([]float64(nil), st.prices...)
		st.mu.RUnlock()
		if len(prices) == 0 {
			continue
		}
		if err := e.deps.KV.Set(ctx, priceHistoryKey(symbol), prices, priceHistoryTTL); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
		}
	}
	return errors.Join(errs...)
}

func newsID(n models.NewsItem) string {
	if n.ID != "" {
		return n.ID
	}
	return n.Headline + "|" + n.PublishedAt.UTC().Format(time.RFC3339)
}

func announcementID(a models.Announcement) string {
	if a.ID != "" {
		return a.ID
	}
	return a.Title + "|" + a.PublishedAt.UTC().Format(time.RFC3339)
}
