package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

// PostService defines post write operations.
type PostService interface {
	Create(ctx context.Context, authorID int64, body string) (model.Post, error)
	Edit(ctx context.Context, authorID, postID int64, body string) (model.Post, error)
	Delete(ctx context.Context, authorID, postID int64) error
}

// Posts handles post write endpoints.
type Posts struct {
	posts  PostService
	ctxMgr model.ContextManager
	logger *logger.Logger
}

// NewPosts creates a new Posts handler.
func NewPosts(posts PostService, ctxMgr model.ContextManager, logger *logger.Logger) *Posts {
	return &Posts{
		posts:  posts,
		ctxMgr: ctxMgr,
		logger: logger,
	}
}

type postRequest struct {
	Body string `json:"body"`
}

// Create publishes a post authored by the viewer.
func (h *Posts) Create(c *gin.Context) {
	authorID, ok := viewer(c, h.ctxMgr)
	if !ok {
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "malformed request body")
		return
	}

	post, err := h.posts.Create(c.Request.Context(), authorID, req.Body)
	if err != nil {
		h.fail(c, "create failed", err, "author_id", authorID)
		return
	}

	c.JSON(http.StatusCreated, toPost(post))
}

// Edit replaces the body of one of the viewer's posts.
func (h *Posts) Edit(c *gin.Context) {
	authorID, ok := viewer(c, h.ctxMgr)
	if !ok {
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "malformed request body")
		return
	}

	post, err := h.posts.Edit(c.Request.Context(), authorID, postID, req.Body)
	if err != nil {
		h.fail(c, "edit failed", err, "author_id", authorID, "post_id", postID)
		return
	}

	c.JSON(http.StatusOK, toPost(post))
}

// Delete removes one of the viewer's posts.
func (h *Posts) Delete(c *gin.Context) {
	authorID, ok := viewer(c, h.ctxMgr)
	if !ok {
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	if err := h.posts.Delete(c.Request.Context(), authorID, postID); err != nil {
		h.fail(c, "delete failed", err, "author_id", authorID, "post_id", postID)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Posts) fail(c *gin.Context, msg string, err error, args ...any) {
	logFailure(h.logger, "Post handler: "+msg, err, args...)
	abortWithError(c, err)
}

func postIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		abortBadRequest(c, "invalid post id")
		return 0, false
	}
	return id, true
}
