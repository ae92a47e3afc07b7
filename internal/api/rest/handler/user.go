package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

// UserService defines account and profile operations.
type UserService interface {
	Register(ctx context.Context, params model.RegisterParams) (model.User, string, error)
	Login(ctx context.Context, username, password string) (string, error)
	ByUsername(ctx context.Context, username string) (model.User, error)
	Profile(ctx context.Context, viewerID int64, username string) (model.Profile, error)
}

// FollowService defines follow graph operations.
type FollowService interface {
	Follow(ctx context.Context, followerID, followedID int64) error
	Unfollow(ctx context.Context, followerID, followedID int64) error
	FollowersOf(ctx context.Context, userID int64) ([]int64, error)
	FollowedBy(ctx context.Context, userID int64) ([]int64, error)
}

// Users handles account, profile and follow endpoints.
type Users struct {
	users   UserService
	follows FollowService
	ctxMgr  model.ContextManager
	logger  *logger.Logger
}

// NewUsers creates a new Users handler.
func NewUsers(users UserService, follows FollowService, ctxMgr model.ContextManager, logger *logger.Logger) *Users {
	return &Users{
		users:   users,
		follows: follows,
		ctxMgr:  ctxMgr,
		logger:  logger,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and returns it with an access token.
func (h *Users) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "username, email and password are required")
		return
	}

	user, token, err := h.users.Register(c.Request.Context(), model.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, "registration failed", err, "username", req.Username)
		return
	}

	c.JSON(http.StatusCreated, registerResponse{
		User:          toUser(user),
		tokenResponse: bearer(token),
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges a username and password for an access token.
func (h *Users) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "username and password are required")
		return
	}

	token, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, "login failed", err, "username", req.Username)
		return
	}

	c.JSON(http.StatusCreated, bearer(token))
}

// Profile returns a user's profile as seen by the viewer.
func (h *Users) Profile(c *gin.Context) {
	viewerID, ok := viewer(c, h.ctxMgr)
	if !ok {
		return
	}

	profile, err := h.users.Profile(c.Request.Context(), viewerID, c.Param("username"))
	if err != nil {
		h.fail(c, "profile lookup failed", err, "username", c.Param("username"))
		return
	}

	c.JSON(http.StatusOK, toProfile(profile))
}

// Followers lists the ids of the users following :username.
func (h *Users) Followers(c *gin.Context) {
	h.listEdges(c, h.follows.FollowersOf)
}

// Following lists the ids of the users :username follows.
func (h *Users) Following(c *gin.Context) {
	h.listEdges(c, h.follows.FollowedBy)
}

func (h *Users) listEdges(c *gin.Context, list func(context.Context, int64) ([]int64, error)) {
	user, err := h.users.ByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.fail(c, "user lookup failed", err, "username", c.Param("username"))
		return
	}

	ids, err := list(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, "follow listing failed", err, "user_id", user.ID)
		return
	}
	if ids == nil {
		ids = []int64{}
	}

	c.JSON(http.StatusOK, userIDsResponse{UserIDs: ids})
}

// Follow makes the viewer follow :username. Following twice is not an error.
func (h *Users) Follow(c *gin.Context) {
	h.setFollowing(c, true)
}

// Unfollow removes the viewer's follow of :username, if any.
func (h *Users) Unfollow(c *gin.Context) {
	h.setFollowing(c, false)
}

func (h *Users) setFollowing(c *gin.Context, following bool) {
	viewerID, ok := viewer(c, h.ctxMgr)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	target, err := h.users.ByUsername(ctx, c.Param("username"))
	if err != nil {
		h.fail(c, "user lookup failed", err, "username", c.Param("username"))
		return
	}

	if following {
		err = h.follows.Follow(ctx, viewerID, target.ID)
	} else {
		err = h.follows.Unfollow(ctx, viewerID, target.ID)
	}
	if err != nil {
		h.fail(c, "follow update failed", err,
			"follower_id", viewerID,
			"followed_id", target.ID,
			"following", following)
		return
	}

	c.JSON(http.StatusOK, followResponse{Following: following})
}

func (h *Users) fail(c *gin.Context, msg string, err error, args ...any) {
	logFailure(h.logger, "User handler: "+msg, err, args...)
	abortWithError(c, err)
}
