package internalhttp

import (
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

func loggingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		req := c.Request()
		log.WithField("ip", c.RealIP()).WithField("method", req.Method).WithField("path", req.URL.Path).
			WithField("status", c.Response().Status).
			WithField("user-agent", req.Header.Get("user-agent")).
			WithField("latency", time.Since(start)).
			Info("http request processed")
		return err
	}
}
