package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Willamette-OR/microblog/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusOf maps a service error to an HTTP status and a client-safe message.
func statusOf(err error) (int, string) {
	var (
		validation *model.ValidationError
		index      *model.IndexUnavailableError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, notFoundMessage(err)
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, model.ErrInvalidCredentials.Error()
	case errors.As(err, &index):
		return http.StatusServiceUnavailable, "search is temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func notFoundMessage(err error) string {
	var nf *model.NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	return model.ErrNotFound.Error()
}

func abortWithError(c *gin.Context, err error) {
	code, msg := statusOf(err)
	c.AbortWithStatusJSON(code, errorResponse{Error: msg})
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
}

func abortBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}
