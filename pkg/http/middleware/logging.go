package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"TradePilot/pkg/logger"
)

// RequestLogging logs HTTP requests; 5xx at error, slow requests at warn.
func RequestLogging(l *logger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			latency := time.Since(start)
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("route", c.Path()),
				logger.String("uri", req.RequestURI),
				logger.Int("status", c.Response().Status),
				logger.Duration("latency_ms", latency),
			}
			switch {
			case c.Response().Status >= 500:
				l.Error("http request failed", fields...)
			case slowThreshold > 0 && latency >= slowThreshold:
				l.Warn("http request slow", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
