package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"downloader/domain/model"
	"downloader/infrastructure/utils"
	"downloader/interfaces/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const secret = "middleware-secret"

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) UpsertByGoogleID(ctx context.Context, u *model.User) (*model.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindTokenExpiredBefore(ctx context.Context, now time.Time) ([]*model.User, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateTokens(ctx context.Context, id string, tokens model.TokenBundle) error {
	return m.Called(ctx, id, tokens).Error(0)
}

func newRouter(repo *MockUserRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/ping", middleware.Auth(repo, secret), func(c *gin.Context) {
		c.String(http.StatusOK, middleware.UserID(c))
	})
	return r
}

func token(t *testing.T, id string) string {
	t.Helper()
	tok, err := utils.GenerateToken(&model.User{ID: id, Email: id + "@example.com"}, secret, time.Hour)
	assert.NoError(t, err)
	return tok
}

func TestAuth_BearerToken(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByID", mock.Anything, "u1").Return(&model.User{ID: "u1"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "u1"))
	w := httptest.NewRecorder()
	newRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
}

func TestAuth_Cookie(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByID", mock.Anything, "u2").Return(&model.User{ID: "u2"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token(t, "u2")})
	w := httptest.NewRecorder()
	newRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u2", w.Body.String())
}

func TestAuth_Rejects(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, model.UserClaims{
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Hour).Unix()},
		UserID:         "u1",
	})
	expiredToken, _ := expired.SignedString([]byte(secret))

	cases := []struct {
		name    string
		header  string
		message string
	}{
		{"missing", "", "Unauthorized"},
		{"not bearer", "Basic abc", "Unauthorized"},
		{"malformed", "Bearer abc", "That's not even a token"},
		{"expired", "Bearer " + expiredToken, "Timing is everything"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			newRouter(repo).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tc.message)
			repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		})
	}
}

func TestAuth_UnknownUser(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByID", mock.Anything, "ghost").Return(nil, model.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "ghost"))
	w := httptest.NewRecorder()
	newRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
