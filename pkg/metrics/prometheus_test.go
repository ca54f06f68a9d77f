package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordSignal("breakout", "BUY")
	r.RecordSignal("breakout", "BUY")
	r.RecordDecision("HOLD")
	r.RecordOrder("FILLED")
	r.RecordError("snapshot")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.signals.WithLabelValues("breakout", "BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisions.WithLabelValues("HOLD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.orders.WithLabelValues("FILLED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("snapshot")))
}

func TestRecorder_QueueObserver(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.JobDropped("deep_analysis")
	r.JobFinished("deep_analysis", time.Millisecond, nil)
	r.JobFinished("deep_analysis", time.Millisecond, errors.New("model down"))
	r.JobFinished("deep_analysis", time.Millisecond, context.Canceled)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.escalations.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.escalations.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.escalations.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.escalations.WithLabelValues("cancelled")))
}

func TestRecorder_Gauges(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordLastPrice("AAPL", 187.5)
	r.RecordPortfolio(1000, 1100, 100, 2)
	r.ObserveTask("market_monitor", 20*time.Millisecond, errors.New("x"))

	assert.Equal(t, 187.5, testutil.ToFloat64(r.lastPrice.WithLabelValues("AAPL")))
	assert.Equal(t, 1100.0, testutil.ToFloat64(r.portfolio.WithLabelValues("value")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.openPositions))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.taskFailures.WithLabelValues("market_monitor")))
}
