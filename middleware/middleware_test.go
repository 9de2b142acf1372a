package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/repository"
	"github.com/cppla/yatube/utils"
)

func setupUsers(t *testing.T) *repository.UserRepository {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.AppConfig{}
	cfg.App.JWTSecret = "test-secret"
	cfg.Database.Driver = "sqlite"
	cfg.Database.URI = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	cfg.Log.Level = "silent"
	config.Set(cfg)
	utils.UseRedis(nil)

	db, err := config.OpenDatabase(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return repository.NewUserRepository(db)
}

func whoAmI(users *repository.UserRepository) *gin.Engine {
	r := gin.New()
	r.Use(LoadUser(users))
	r.GET("/whoami", func(ctx *gin.Context) {
		if u := CurrentUser(ctx); u != nil {
			ctx.String(http.StatusOK, u.Username)
			return
		}
		ctx.String(http.StatusOK, "anonymous")
	})
	r.GET("/private/", LoginRequired(), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "secret")
	})
	return r
}

func TestLoadUser(t *testing.T) {
	users := setupUsers(t)
	u := &models.User{Username: "leo"}
	require.NoError(t, users.Create(context.Background(), u))
	token, err := utils.GenerateToken(u.ID, u.Username, time.Hour)
	require.NoError(t, err)
	r := whoAmI(users)

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "leo", w.Body.String())
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "leo", w.Body.String())
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "garbage"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "anonymous", w.Body.String())
	})

	t.Run("blacklisted token", func(t *testing.T) {
		revoked, err := utils.GenerateToken(u.ID, u.Username, 2*time.Hour)
		require.NoError(t, err)
		utils.BlacklistToken(revoked, time.Now().Add(2*time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: revoked})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "anonymous", w.Body.String())
	})

	t.Run("deleted user", func(t *testing.T) {
		ghost, err := utils.GenerateToken(u.ID+100, "ghost", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: ghost})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "anonymous", w.Body.String())
	})
}

func TestLoginRequired(t *testing.T) {
	users := setupUsers(t)
	r := whoAmI(users)

	req := httptest.NewRequest(http.MethodGet, "/private/?x=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=%2Fprivate%2F%3Fx%3D1", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/private/", nil)
	req.Header.Set("Accept", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40101`)
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(4) // burst of 2
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	r.POST("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// reads are never limited
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_PerKey(t *testing.T) {
	rl := NewRateLimiter(2) // burst of 1
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}
