package alert

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	xhttp "TradePilot/pkg/http"
)

const telegramAPIURL = "https://api.telegram.org"

// TelegramSink posts alerts to a chat through the Bot API.
type TelegramSink struct {
	botToken string
	chatID   string
	apiURL   string
	minLevel models.AlertLevel
	client   *xhttp.Client
}

type TelegramOption func(*TelegramSink)

// WithTelegramAPI overrides the Bot API base URL.
func WithTelegramAPI(url string) TelegramOption {
	return func(s *TelegramSink) {
		s.apiURL = strings.TrimRight(url, "/")
	}
}

// WithMinLevel drops alerts below level.
func WithMinLevel(level models.AlertLevel) TelegramOption {
	return func(s *TelegramSink) {
		s.minLevel = level
	}
}

func NewTelegramSink(botToken, chatID string, opts ...TelegramOption) *TelegramSink {
	s := &TelegramSink{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   telegramAPIURL,
		minLevel: models.AlertInfo,
		// Bot API allows about one message per second per chat
		client: xhttp.NewClient(xhttp.WithTimeout(10*time.Second), xhttp.WithRateLimit(1, 3)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (s *TelegramSink) Send(ctx context.Context, a models.Alert) error {
	if rank(a.Level) < rank(s.minLevel) {
		return nil
	}

	var resp sendMessageResponse
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.botToken)
	req := sendMessageRequest{ChatID: s.chatID, Text: FormatHTML(a), ParseMode: "HTML"}
	if err := s.client.PostJSON(ctx, url, req, &resp); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram API error: %s", resp.Description)
	}
	return nil
}

// FormatHTML renders an alert as a Telegram HTML message.
func FormatHTML(a models.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>", icon(a.Level), a.Level)
	if a.Symbol != "" {
		fmt.Fprintf(&b, " <code>%s</code>", html.EscapeString(a.Symbol))
	}
	b.WriteString("\n")
	b.WriteString(html.EscapeString(a.Message))

	keys := make([]string, 0, len(a.Data))
	for k := range a.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n<i>%s</i>: %s", html.EscapeString(k), html.EscapeString(fmt.Sprint(a.Data[k])))
	}
	return b.String()
}

func icon(level models.AlertLevel) string {
	switch level {
	case models.AlertCritical:
		return "🚨"
	case models.AlertWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

func rank(level models.AlertLevel) int {
	switch level {
	case models.AlertCritical:
		return 2
	case models.AlertWarning:
		return 1
	default:
		return 0
	}
}

var _ drepo.AlertSink = (*TelegramSink)(nil)
