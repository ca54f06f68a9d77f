package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"
)

// New builds an alert with a fresh ID and the current time.
func New(level models.AlertLevel, symbol, message string, data map[string]interface{}) models.Alert {
	return models.Alert{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		Symbol:    symbol,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// LogSink writes alerts to the structured log.
type LogSink struct {
	logger *logger.Logger
}

func NewLogSink(lgr *logger.Logger) *LogSink {
	return &LogSink{logger: lgr.Component("alerts")}
}

func (s *LogSink) Send(_ context.Context, a models.Alert) error {
	fields := []logger.Field{
		logger.String("alert_id", a.ID),
		logger.String("level", string(a.Level)),
		logger.String("symbol", a.Symbol),
	}
	if len(a.Data) > 0 {
		fields = append(fields, logger.Any("data", a.Data))
	}

	switch a.Level {
	case models.AlertCritical:
		s.logger.Error(a.Message, fields...)
	case models.AlertWarning:
		s.logger.Warn(a.Message, fields...)
	default:
		s.logger.Info(a.Message, fields...)
	}
	return nil
}

// MultiSink delivers to every sink; a failing sink does not stop the others.
type MultiSink struct {
	sinks []drepo.AlertSink
}

func NewMultiSink(sinks ...drepo.AlertSink) *MultiSink {
	out := make([]drepo.AlertSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiSink{sinks: out}
}

func (m *MultiSink) Send(ctx context.Context, a models.Alert) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Send(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

var (
	_ drepo.AlertSink = (*LogSink)(nil)
	_ drepo.AlertSink = (*MultiSink)(nil)
)
