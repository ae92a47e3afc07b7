package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

// Authenticate validates bearer tokens and stores the viewer id on the request context.
type Authenticate struct {
	tokens         model.TokenManager
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokens model.TokenManager, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokens: tokens, contextManager: contextManager, logger: logger}
}

// Handle rejects the request with 401 unless it carries a valid access token.
func (m *Authenticate) Handle(c *gin.Context) {
	raw, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		m.reject(c, "missing authorization token")
		return
	}

	userID, err := m.tokens.ParseAccessToken(raw)
	if err != nil {
		m.logger.Debug("Authenticate middleware: token rejected",
			"path", c.FullPath(),
			"error", err)
		m.reject(c, "invalid authorization token")
		return
	}

	ctx := m.contextManager.SetUserIDToContext(c.Request.Context(), userID)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func (m *Authenticate) reject(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Toucher records user activity.
type Toucher interface {
	TouchLastSeen(ctx context.Context, userID int64) error
}

// LastSeen records the viewer's activity on every authenticated request.
// A failed update is logged and never fails the request.
type LastSeen struct {
	users          Toucher
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewLastSeen(users Toucher, contextManager model.ContextManager, logger *logger.Logger) *LastSeen {
	return &LastSeen{users: users, contextManager: contextManager, logger: logger}
}

func (m *LastSeen) Handle(c *gin.Context) {
	if userID, ok := m.contextManager.GetUserIDFromContext(c.Request.Context()); ok {
		if err := m.users.TouchLastSeen(c.Request.Context(), userID); err != nil {
			m.logger.Warn("LastSeen middleware: update failed",
				"user_id", userID,
				"error", err)
		}
	}
	c.Next()
}
