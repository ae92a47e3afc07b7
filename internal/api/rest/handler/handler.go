// Package handler implements the REST endpoints on top of the services.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

// viewer returns the authenticated user id, answering 401 when there is none.
func viewer(c *gin.Context, ctxMgr model.ContextManager) (int64, bool) {
	userID, ok := ctxMgr.GetUserIDFromContext(c.Request.Context())
	if !ok {
		abortUnauthenticated(c)
		return 0, false
	}
	return userID, true
}

// logFailure logs client errors at Info and everything else at Error.
func logFailure(l *logger.Logger, msg string, err error, args ...any) {
	args = append(args, "error", err)
	if code, _ := statusOf(err); code < http.StatusInternalServerError {
		l.Info(msg, args...)
		return
	}
	l.Error(msg, args...)
}
