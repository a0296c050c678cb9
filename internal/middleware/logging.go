package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/astro-snapshot-go/internal/logging"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request after the handler chain finishes.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		logging.LogAPIRequest(logger, c.Request.Method, path, c.Writer.Status(),
			time.Since(start).Milliseconds(), GetRequestID(c))
	}
}
