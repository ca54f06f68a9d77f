package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"
)

var t0 = time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)

func TestSnapshotBook_Unknown(t *testing.T) {
	b := NewSnapshotBook()
	_, err := b.FetchSnapshot(context.Background(), "AAPL")
	assert.ErrorIs(t, err, drepo.ErrSnapshotUnavailable)

	b.Apply(models.Trade{Symbol: "AAPL", Price: 0, Volume: 1, Timestamp: t0})
	_, err = b.FetchSnapshot(context.Background(), "AAPL")
	assert.ErrorIs(t, err, drepo.ErrSnapshotUnavailable)
}

func TestSnapshotBook_FoldsTrades(t *testing.T) {
	b := NewSnapshotBook(WithBucket(time.Minute))

	b.Apply(models.Trade{Symbol: "AAPL", Price: 100, Volume: 10, Timestamp: t0})
	b.Apply(models.Trade{Symbol: "AAPL", Price: 104, Volume: 20, Timestamp: t0.Add(10 * time.Second)})
	b.Apply(models.Trade{Symbol: "AAPL", Price: 98, Volume: 30, Timestamp: t0.Add(70 * time.Second)})
	b.Apply(models.Trade{Symbol: "AAPL", Price: 102, Volume: 5, Timestamp: t0.Add(80 * time.Second)})

	snap, err := b.FetchSnapshot(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 102.0, snap.CurrentPrice)
	assert.Equal(t, 100.0, snap.Open)
	assert.Equal(t, 104.0, snap.High)
	assert.Equal(t, 98.0, snap.Low)
	assert.Equal(t, 35.0, snap.Volume)
	assert.Equal(t, 30.0, snap.AvgVolume)
	assert.InDelta(t, 2.0, snap.ChangePct, 1e-9)

	flow, ok := b.OrderFlow("AAPL")
	require.True(t, ok)
	assert.Equal(t, 5.0, flow.BuyVolume)
	assert.Equal(t, 30.0, flow.SellVolume)

	last, ok := b.LastPrice("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 102.0, last)
}

func TestSnapshotBook_DayReset(t *testing.T) {
	b := NewSnapshotBook()
	b.Apply(models.Trade{Symbol: "BTC", Price: 100, Volume: 1, Timestamp: t0})
	b.Apply(models.Trade{Symbol: "BTC", Price: 90, Volume: 1, Timestamp: t0.Add(24 * time.Hour)})

	snap, err := b.FetchSnapshot(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 90.0, snap.Open)
	assert.Equal(t, 90.0, snap.High)
	assert.Zero(t, snap.ChangePct)
}

func TestSnapshotBook_StaleSnapshotUnavailable(t *testing.T) {
	now := t0
	b := NewSnapshotBook(WithMaxAge(5*time.Minute), WithBookClock(func() time.Time { return now }))
	b.Apply(models.Trade{Symbol: "AAPL", Price: 100, Volume: 1, Timestamp: t0.Add(-6 * time.Hour)})

	_, err := b.FetchSnapshot(context.Background(), "AAPL")
	assert.ErrorIs(t, err, drepo.ErrSnapshotUnavailable)

	// last price stays available for order fills
	last, ok := b.LastPrice("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 100.0, last)

	b.Apply(models.Trade{Symbol: "AAPL", Price: 101, Volume: 1, Timestamp: t0.Add(-time.Minute)})
	snap, err := b.FetchSnapshot(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 101.0, snap.CurrentPrice)
}

func TestClient_StreamsTrades(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan string, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg map[string]string
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		subscribed <- msg["symbol"]

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"trade","data":[{"s":"AAPL","p":187.2,"v":3,"t":1709301600000}]}`))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New(logger.Nop(), "secret", wsURL, []string{"AAPL"}, 10*time.Millisecond, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())
	require.NoError(t, c.Subscribe(ctx))
	assert.Equal(t, "AAPL", <-subscribed)

	trades, _ := c.Read(ctx)
	select {
	case tr := <-trades:
		assert.Equal(t, "AAPL", tr.Symbol)
		assert.Equal(t, 187.2, tr.Price)
		assert.Equal(t, int64(1709301600000), tr.Timestamp.UnixMilli())
	case <-ctx.Done():
		t.Fatal("no trade received")
	}

	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
}

func TestClient_ReadWithoutConnection(t *testing.T) {
	c := New(logger.Nop(), "", "ws://127.0.0.1:1", nil, 0, 0)
	_, errs := c.Read(context.Background())
	assert.Error(t, <-errs)
}
