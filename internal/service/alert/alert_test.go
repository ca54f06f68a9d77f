package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/logger"
)

type recordingSink struct {
	got []models.Alert
	err error
}

func (r *recordingSink) Send(_ context.Context, a models.Alert) error {
	r.got = append(r.got, a)
	return r.err
}

type fakePublisher struct {
	topic string
	key   string
	value interface{}
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, string(key), value
	return nil
}

func TestNew(t *testing.T) {
	a := New(models.AlertWarning, "AAPL", "anomaly", nil)
	b := New(models.AlertWarning, "AAPL", "anomaly", nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(logger.FromWriter(&buf))

	require.NoError(t, s.Send(context.Background(), New(models.AlertCritical, "AAPL", "risk spike", map[string]interface{}{"risk_score": 9})))
	assert.Contains(t, buf.String(), "risk spike")
	assert.Contains(t, buf.String(), "CRITICAL")
	assert.Contains(t, buf.String(), "risk_score")
}

func TestMultiSink_ContinuesAfterFailure(t *testing.T) {
	failing := &recordingSink{err: errors.New("down")}
	ok := &recordingSink{}
	m := NewMultiSink(failing, nil, ok)

	err := m.Send(context.Background(), New(models.AlertInfo, "", "hello", nil))
	assert.Error(t, err)
	assert.Len(t, failing.got, 1)
	assert.Len(t, ok.got, 1)
}

func TestKafkaSink(t *testing.T) {
	pub := &fakePublisher{}
	a := New(models.AlertWarning, "MSFT", "volume spike", nil)
	require.NoError(t, NewKafkaSink(pub, "alerts").Send(context.Background(), a))
	assert.Equal(t, "alerts", pub.topic)
	assert.Equal(t, "MSFT", pub.key)
	assert.Equal(t, a, pub.value)
}

func TestTelegramSink(t *testing.T) {
	var got sendMessageRequest
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/bottoken123/sendMessage", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSink("token123", "42", WithTelegramAPI(srv.URL), WithMinLevel(models.AlertWarning))

	require.NoError(t, s.Send(context.Background(), New(models.AlertInfo, "AAPL", "ignored", nil)))
	assert.Zero(t, calls)

	require.NoError(t, s.Send(context.Background(), New(models.AlertCritical, "AAPL", "risk <high>", nil)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Contains(t, got.Text, "risk &lt;high&gt;")
}

func TestTelegramSink_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewTelegramSink("t", "1", WithTelegramAPI(srv.URL)).Send(context.Background(), New(models.AlertInfo, "", "x", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
