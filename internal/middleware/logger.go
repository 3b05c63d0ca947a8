package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request. Streams are logged when they end.
func RequestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if userID, ok := UserID(c); ok {
			entry = entry.WithField("user_id", userID.String())
		}
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request failed")
		case c.Writer.Status() >= 400:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
