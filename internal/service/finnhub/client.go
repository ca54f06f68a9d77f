package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"
)

var errNotConnected = errors.New("finnhub not connected")

// Client implements a MarketStream backed by the Finnhub trade WebSocket.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *logger.Logger

	mu        sync.Mutex
	writeMu   sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New creates a new Finnhub MarketStream.
func New(lgr *logger.Logger, apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration) *Client {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         lgr.Component("finnhub"),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.websocketURL)
	if err != nil {
		return fmt.Errorf("finnhub url: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("token", c.apiKey)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info("connected", logger.String("url", c.websocketURL))
	return nil
}

// Subscribe subscribes to configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := c.writeJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		c.logger.Debug("subscribed", logger.String("symbol", s))
	}
	return nil
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// Read streams trades until ctx ends or the connection fails. Both channels
// are closed when reading stops.
func (c *Client) Read(ctx context.Context) (<-chan models.Trade, <-chan error) {
	trades := make(chan models.Trade, 1024)
	errs := make(chan error, 1)

	conn := c.current()
	if conn == nil {
		errs <- errNotConnected
		close(errs)
		close(trades)
		return trades, errs
	}

	readCtx, cancel := context.WithCancel(ctx)
	go c.pingLoop(readCtx)

	go func() {
		defer cancel()
		defer close(trades)
		defer close(errs)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if readCtx.Err() == nil {
					errs <- fmt.Errorf("finnhub read: %w", err)
				}
				return
			}

			var m fhMessage
			if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
				continue
			}
			for _, d := range m.Data {
				trade := models.Trade{Symbol: d.S, Price: d.P, Volume: d.V, Timestamp: time.UnixMilli(d.T)}
				select {
				case trades <- trade:
				case <-readCtx.Done():
					return
				default:
					c.logger.Warn("trade dropped on backpressure", logger.String("symbol", d.S))
				}
			}
		}
	}()

	go func() {
		<-readCtx.Done()
		_ = conn.Close()
	}()

	return trades, errs
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed", logger.Error(err))
			}
		}
	}
}

// Reconnect closes, waits the reconnect delay and connects again.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()

	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) writeJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, b)
}

func (c *Client) write(messageType int, data []byte) error {
	conn := c.current()
	if conn == nil {
		return errNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(messageType, data)
}

var _ drepo.MarketStream = (*Client)(nil)
