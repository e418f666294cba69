package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yskhub/TaskVault/pkg/logger"
	"go.uber.org/zap"
)

func ZapLoggerMiddleware(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			reqLogger := l.With(
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			// Handlers and services pick the logger up via logger.FromContext.
			c.SetRequest(req.WithContext(logger.WithLogger(req.Context(), reqLogger)))

			err := next(c)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.Int64("bytes_out", c.Response().Size),
			}

			if err != nil {
				reqLogger.Error("request failed", append(fields, zap.Error(err))...)
			} else {
				reqLogger.Info("request completed", fields...)
			}

			return err
		}
	}
}

// RateLimiter is satisfied by ratelimit.Limiter; handler tests stub it.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

func RateLimitMiddleware(rl RateLimiter, key string, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl == nil || limit <= 0 {
				return next(c)
			}

			allowed, count, err := rl.Allow(c.Request().Context(), key, limit, window)
			if err != nil {
				// Redis being down must not take the API with it.
				logger.FromContext(c.Request().Context()).Warn("rate limit check failed", zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
			h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(limit-count, 0)))
			h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(window).Unix()))

			if !allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"error":       "rate limit exceeded",
					"retry_after": window.Seconds(),
				})
			}

			return next(c)
		}
	}
}
