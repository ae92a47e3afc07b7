package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

// FeedService defines paginated post listings.
type FeedService interface {
	Followed(ctx context.Context, userID int64, pageToken string) (model.Page[model.Post], error)
	Explore(ctx context.Context, pageToken string) (model.Page[model.Post], error)
	ByAuthor(ctx context.Context, authorID int64, pageToken string) (model.Page[model.Post], error)
}

// SearchService defines full-text post search.
type SearchService interface {
	Posts(ctx context.Context, expression, pageToken string) (model.SearchResult, error)
}

// UserResolver resolves usernames.
type UserResolver interface {
	ByUsername(ctx context.Context, username string) (model.User, error)
}

// Timeline handles the read endpoints that return pages of posts.
type Timeline struct {
	feed   FeedService
	search SearchService
	users  UserResolver
	ctxMgr model.ContextManager
	logger *logger.Logger
}

// NewTimeline creates a new Timeline handler.
func NewTimeline(feed FeedService, search SearchService, users UserResolver, ctxMgr model.ContextManager, logger *logger.Logger) *Timeline {
	return &Timeline{
		feed:   feed,
		search: search,
		users:  users,
		ctxMgr: ctxMgr,
		logger: logger,
	}
}

// Feed returns the viewer's own posts merged with those of everyone they follow.
func (h *Timeline) Feed(c *gin.Context) {
	viewerID, ok := viewer(c, h.ctxMgr)
	if !ok {
		return
	}

	page, err := h.feed.Followed(c.Request.Context(), viewerID, c.Query("page"))
	if err != nil {
		h.fail(c, "feed failed", err, "user_id", viewerID)
		return
	}

	c.JSON(http.StatusOK, toPage(page))
}

// Explore returns every post.
func (h *Timeline) Explore(c *gin.Context) {
	page, err := h.feed.Explore(c.Request.Context(), c.Query("page"))
	if err != nil {
		h.fail(c, "explore failed", err)
		return
	}

	c.JSON(http.StatusOK, toPage(page))
}

// ByAuthor returns the posts written by :username.
func (h *Timeline) ByAuthor(c *gin.Context) {
	ctx := c.Request.Context()
	author, err := h.users.ByUsername(ctx, c.Param("username"))
	if err != nil {
		h.fail(c, "user lookup failed", err, "username", c.Param("username"))
		return
	}

	page, err := h.feed.ByAuthor(ctx, author.ID, c.Query("page"))
	if err != nil {
		h.fail(c, "author posts failed", err, "author_id", author.ID)
		return
	}

	c.JSON(http.StatusOK, toPage(page))
}

// Search returns the posts matching ?q= in relevance order.
func (h *Timeline) Search(c *gin.Context) {
	q := c.Query("q")
	result, err := h.search.Posts(c.Request.Context(), q, c.Query("page"))
	if err != nil {
		h.fail(c, "search failed", err, "query", q)
		return
	}

	c.JSON(http.StatusOK, searchResponse{
		pageResponse: toPage(result.Page),
		Total:        result.Total,
	})
}

func (h *Timeline) fail(c *gin.Context, msg string, err error, args ...any) {
	logFailure(h.logger, "Timeline handler: "+msg, err, args...)
	abortWithError(c, err)
}
