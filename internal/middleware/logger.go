package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger writes one structured line per request.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			if id := res.Header().Get(echo.HeaderXRequestID); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}
			if uid := UserID(c); uid != "" {
				fields = append(fields, zap.String("user_id", uid))
			}
			switch {
			case res.Status >= 500:
				log.Error("http: request", append(fields, zap.Error(err))...)
			case res.Status >= 400:
				log.Warn("http: request", fields...)
			default:
				log.Info("http: request", fields...)
			}
			return nil
		}
	}
}
