package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/repository"
	"github.com/cppla/yatube/utils"
)

const (
	// ContextUserKey stores the authenticated *models.User inside Gin context.
	ContextUserKey = "current_user"
	// ContextTokenKey stores the raw token the user authenticated with.
	ContextTokenKey = "token"
	// TokenCookieName is the cookie carrying the session JWT.
	TokenCookieName = "token"
	// LoginURL is where anonymous visitors of protected routes are sent.
	LoginURL = "/auth/login/"
)

// LoadUser resolves the caller from the token cookie or a bearer header. Requests
// without a usable token continue anonymously.
func LoadUser(users *repository.UserRepository) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := requestToken(ctx)
		if tokenString == "" || utils.IsTokenBlacklisted(tokenString) {
			ctx.Next()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			ctx.Next()
			return
		}

		user, err := users.FindByID(ctx.Request.Context(), claims.UserID)
		switch {
		case err == nil:
			ctx.Set(ContextUserKey, user)
			ctx.Set(ContextTokenKey, tokenString)
		case !errors.Is(err, repository.ErrNotFound):
			utils.Sugar.Warnf("load user %d: %v", claims.UserID, err)
		}
		ctx.Next()
	}
}

// LoginRequired redirects anonymous callers to the login page, keeping the
// requested path in the next parameter.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentUser(ctx) != nil {
			ctx.Next()
			return
		}
		if utils.WantsJSON(ctx) {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
			ctx.Abort()
			return
		}
		ctx.Redirect(http.StatusFound, LoginURL+"?next="+url.QueryEscape(ctx.Request.URL.RequestURI()))
		ctx.Abort()
	}
}

// CurrentUser returns the authenticated user or nil for anonymous requests.
func CurrentUser(ctx *gin.Context) *models.User {
	value, exists := ctx.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

func requestToken(ctx *gin.Context) string {
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := ctx.Cookie(TokenCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}
