package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Willamette-OR/microblog/internal/logger"
)

// Logging writes one record per HTTP request.
type Logging struct {
	logger *logger.Logger
}

func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// Handle logs server errors at Error and everything else at Debug.
func (m *Logging) Handle(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	args := []any{
		"method", c.Request.Method,
		"route", route,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
		"client_ip", c.ClientIP(),
	}
	if len(c.Errors) > 0 {
		args = append(args, "errors", c.Errors.String())
	}

	if c.Writer.Status() >= http.StatusInternalServerError {
		m.logger.Error("HTTP request failed", args...)
		return
	}
	m.logger.Debug("HTTP request completed", args...)
}

// Recover turns a handler panic into a 500 response.
func (m *Logging) Recover(c *gin.Context, recovered any) {
	m.logger.Error("HTTP handler panicked",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"panic", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
