package router

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Willamette-OR/microblog/internal/api/rest/handler"
	"github.com/Willamette-OR/microblog/internal/api/rest/middleware"
	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/model"
)

// Handlers groups the REST endpoint handlers.
type Handlers struct {
	Users    *handler.Users
	Posts    *handler.Posts
	Timeline *handler.Timeline
}

// Router builds the public REST API.
type Router struct {
	handlers     Handlers
	tokens       model.TokenManager
	toucher      middleware.Toucher
	ctxMgr       model.ContextManager
	allowOrigins []string
	logger       *logger.Logger
}

// New creates new REST Router instance.
func New(
	handlers Handlers,
	tokens model.TokenManager,
	toucher middleware.Toucher,
	ctxMgr model.ContextManager,
	allowOrigins []string,
	logger *logger.Logger,
) *Router {
	return &Router{
		handlers:     handlers,
		tokens:       tokens,
		toucher:      toucher,
		ctxMgr:       ctxMgr,
		allowOrigins: allowOrigins,
		logger:       logger,
	}
}

// Register creates the gin engine with logging, panic recovery and CORS
// and mounts every /v1 route on it.
func (r *Router) Register() *gin.Engine {
	logging := middleware.NewLogging(r.logger)
	auth := middleware.NewAuthenticate(r.tokens, r.ctxMgr, r.logger)
	lastSeen := middleware.NewLastSeen(r.toucher, r.ctxMgr, r.logger)

	e := gin.New()
	e.Use(
		logging.Handle,
		gin.CustomRecovery(logging.Recover),
		cors.New(r.corsConfig()),
	)

	v1 := e.Group("/v1")
	v1.POST("/users", r.handlers.Users.Register)
	v1.POST("/tokens", r.handlers.Users.Login)

	authed := v1.Group("", auth.Handle, lastSeen.Handle)
	authed.GET("/feed", r.handlers.Timeline.Feed)
	authed.GET("/explore", r.handlers.Timeline.Explore)
	authed.GET("/search", r.handlers.Timeline.Search)

	authed.GET("/users/:username", r.handlers.Users.Profile)
	authed.GET("/users/:username/posts", r.handlers.Timeline.ByAuthor)
	authed.GET("/users/:username/followers", r.handlers.Users.Followers)
	authed.GET("/users/:username/following", r.handlers.Users.Following)
	authed.POST("/users/:username/follow", r.handlers.Users.Follow)
	authed.DELETE("/users/:username/follow", r.handlers.Users.Unfollow)

	authed.POST("/posts", r.handlers.Posts.Create)
	authed.PATCH("/posts/:id", r.handlers.Posts.Edit)
	authed.DELETE("/posts/:id", r.handlers.Posts.Delete)

	return e
}

func (r *Router) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(r.allowOrigins) == 0 || slices.Contains(r.allowOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = r.allowOrigins
	}
	return cfg
}
