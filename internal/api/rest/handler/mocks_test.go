package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	restctx "github.com/Willamette-OR/microblog/internal/api/rest/context"
	"github.com/Willamette-OR/microblog/internal/model"
)

type MockUserService struct{ mock.Mock }

func (m *MockUserService) Register(ctx context.Context, params model.RegisterParams) (model.User, string, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.User), args.String(1), args.Error(2)
}

func (m *MockUserService) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockUserService) ByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserService) Profile(ctx context.Context, viewerID int64, username string) (model.Profile, error) {
	args := m.Called(ctx, viewerID, username)
	return args.Get(0).(model.Profile), args.Error(1)
}

type MockFollowService struct{ mock.Mock }

func (m *MockFollowService) Follow(ctx context.Context, followerID, followedID int64) error {
	return m.Called(ctx, followerID, followedID).Error(0)
}

func (m *MockFollowService) Unfollow(ctx context.Context, followerID, followedID int64) error {
	return m.Called(ctx, followerID, followedID).Error(0)
}

func (m *MockFollowService) FollowersOf(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *MockFollowService) FollowedBy(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

type MockPostService struct{ mock.Mock }

func (m *MockPostService) Create(ctx context.Context, authorID int64, body string) (model.Post, error) {
	args := m.Called(ctx, authorID, body)
	return args.Get(0).(model.Post), args.Error(1)
}

func (m *MockPostService) Edit(ctx context.Context, authorID, postID int64, body string) (model.Post, error) {
	args := m.Called(ctx, authorID, postID, body)
	return args.Get(0).(model.Post), args.Error(1)
}

func (m *MockPostService) Delete(ctx context.Context, authorID, postID int64) error {
	return m.Called(ctx, authorID, postID).Error(0)
}

type MockFeedService struct{ mock.Mock }

func (m *MockFeedService) Followed(ctx context.Context, userID int64, pageToken string) (model.Page[model.Post], error) {
	args := m.Called(ctx, userID, pageToken)
	return args.Get(0).(model.Page[model.Post]), args.Error(1)
}

func (m *MockFeedService) Explore(ctx context.Context, pageToken string) (model.Page[model.Post], error) {
	args := m.Called(ctx, pageToken)
	return args.Get(0).(model.Page[model.Post]), args.Error(1)
}

func (m *MockFeedService) ByAuthor(ctx context.Context, authorID int64, pageToken string) (model.Page[model.Post], error) {
	args := m.Called(ctx, authorID, pageToken)
	return args.Get(0).(model.Page[model.Post]), args.Error(1)
}

type MockSearchService struct{ mock.Mock }

func (m *MockSearchService) Posts(ctx context.Context, expression, pageToken string) (model.SearchResult, error) {
	args := m.Called(ctx, expression, pageToken)
	return args.Get(0).(model.SearchResult), args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

// asViewer authenticates every request as userID; zero leaves it anonymous.
func asViewer(ctxMgr *restctx.Manager, userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != 0 {
			c.Request = c.Request.WithContext(ctxMgr.SetUserIDToContext(c.Request.Context(), userID))
		}
		c.Next()
	}
}

func serve(t *testing.T, e *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}
