package server

import (
	"net/http"
	"time"

	"lightshade/internal/segment"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const requestIDKey = "request_id"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		requestLogger(c).WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Microsecond).String(),
		}).Debug("[Server] Request")
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With, X-Request-ID, Cache-Control")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Next()
	}
}

func requestLogger(c *gin.Context) *log.Entry {
	return log.WithField(requestIDKey, c.GetString(requestIDKey))
}

// statusOf maps an error kind to an HTTP status.
func statusOf(kind segment.ErrorKind) int {
	switch kind {
	case segment.KindModelNotReady:
		return http.StatusServiceUnavailable
	case segment.KindInvalidImageBuffer:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(kind segment.ErrorKind, message string) gin.H {
	return gin.H{"error": gin.H{"kind": kind, "message": message}}
}

// writeError renders err as {"error": {"kind", "message"}}.
func writeError(c *gin.Context, err error) {
	kind := segment.KindOf(err)
	status := statusOf(kind)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		requestLogger(c).Warnf("[Server] %s: %v", kind, err)
	}
	c.AbortWithStatusJSON(status, errorBody(kind, err.Error()))
}
