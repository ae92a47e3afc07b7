package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	restctx "github.com/Willamette-OR/microblog/internal/api/rest/context"
	"github.com/Willamette-OR/microblog/internal/logger"
	"github.com/Willamette-OR/microblog/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockTokenManager struct{ mock.Mock }

func (m *MockTokenManager) GenerateAccessToken(userID int64) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenManager) ParseAccessToken(token string) (int64, error) {
	args := m.Called(token)
	return args.Get(0).(int64), args.Error(1)
}

type MockToucher struct{ mock.Mock }

func (m *MockToucher) TouchLastSeen(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

// whoami echoes the viewer id stored by Authenticate.
func whoami(ctxMgr *restctx.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ctxMgr.GetUserIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok})
	}
}

func TestAuthenticate_Handle(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		setup      func(*MockTokenManager)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "valid token",
			header: "Bearer good",
			setup: func(m *MockTokenManager) {
				m.On("ParseAccessToken", "good").Return(int64(9), nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"id":9,"ok":true}`,
		},
		{
			name:   "lowercase scheme",
			header: "bearer good",
			setup: func(m *MockTokenManager) {
				m.On("ParseAccessToken", "good").Return(int64(9), nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"id":9,"ok":true}`,
		},
		{
			name:       "missing header",
			setup:      func(*MockTokenManager) {},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"missing authorization token"}`,
		},
		{
			name:       "wrong scheme",
			header:     "Basic dXNlcjpwYXNz",
			setup:      func(*MockTokenManager) {},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"missing authorization token"}`,
		},
		{
			name:       "empty token",
			header:     "Bearer   ",
			setup:      func(*MockTokenManager) {},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"missing authorization token"}`,
		},
		{
			name:   "rejected token",
			header: "Bearer expired",
			setup: func(m *MockTokenManager) {
				m.On("ParseAccessToken", "expired").Return(int64(0), errors.New("token is expired"))
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"invalid authorization token"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := &MockTokenManager{}
			tt.setup(tokens)
			ctxMgr := restctx.NewManager()
			auth := NewAuthenticate(tokens, ctxMgr, testutil.MakeNoopLogger())

			e := gin.New()
			e.GET("/me", auth.Handle, whoami(ctxMgr))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			e.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			}
			tokens.AssertExpectations(t)
		})
	}
}

func TestLastSeen_Handle(t *testing.T) {
	t.Run("authenticated viewer touched", func(t *testing.T) {
		ctxMgr := restctx.NewManager()
		users := &MockToucher{}
		users.On("TouchLastSeen", mock.Anything, int64(3)).Return(nil)

		e := gin.New()
		e.GET("/", func(c *gin.Context) {
			c.Request = c.Request.WithContext(ctxMgr.SetUserIDToContext(c.Request.Context(), 3))
		}, NewLastSeen(users, ctxMgr, testutil.MakeNoopLogger()).Handle, func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("failure does not fail the request", func(t *testing.T) {
		ctxMgr := restctx.NewManager()
		users := &MockToucher{}
		users.On("TouchLastSeen", mock.Anything, int64(3)).Return(errors.New("db down"))

		var buf bytes.Buffer
		e := gin.New()
		e.GET("/", func(c *gin.Context) {
			c.Request = c.Request.WithContext(ctxMgr.SetUserIDToContext(c.Request.Context(), 3))
		}, NewLastSeen(users, ctxMgr, logger.NewWithWriter(&buf, 0)).Handle, func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, buf.String(), "LastSeen middleware: update failed")
	})

	t.Run("anonymous skipped", func(t *testing.T) {
		users := &MockToucher{}

		e := gin.New()
		e.GET("/", NewLastSeen(users, restctx.NewManager(), testutil.MakeNoopLogger()).Handle, func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		users.AssertNotCalled(t, "TouchLastSeen", mock.Anything, mock.Anything)
	})
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name     string
		handler  gin.HandlerFunc
		wantCode int
		wantLog  string
	}{
		{
			name:     "success at debug",
			handler:  func(c *gin.Context) { c.Status(http.StatusOK) },
			wantCode: http.StatusOK,
			wantLog:  "HTTP request completed",
		},
		{
			name:     "server error at error",
			handler:  func(c *gin.Context) { c.Status(http.StatusInternalServerError) },
			wantCode: http.StatusInternalServerError,
			wantLog:  "level=ERROR msg=\"HTTP request failed\"",
		},
		{
			name:     "panic recovered",
			handler:  func(*gin.Context) { panic("boom") },
			wantCode: http.StatusInternalServerError,
			wantLog:  "HTTP handler panicked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logging := NewLogging(logger.NewWithWriter(&buf, -4))

			e := gin.New()
			e.Use(logging.Handle, gin.CustomRecovery(logging.Recover))
			e.GET("/x", tt.handler)

			w := httptest.NewRecorder()
			e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, buf.String(), tt.wantLog)
			assert.Contains(t, buf.String(), "route=/x")
		})
	}
}
