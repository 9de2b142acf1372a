package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/repository"
	"github.com/cppla/yatube/utils"
)

// AuthController handles signup, login and logout with a cookie held JWT.
type AuthController struct {
	users        *repository.UserRepository
	tokenTTL     time.Duration
	cookieSecure bool
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	cfg := config.Get()
	ttl := time.Duration(cfg.App.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &AuthController{
		users:        repository.NewUserRepository(db),
		tokenTTL:     ttl,
		cookieSecure: cfg.App.CookieSecure,
	}
}

// Signup registers a local account with a bcrypt hashed password.
func (a *AuthController) Signup(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodPost {
		a.render(ctx, "signup.html", SignupForm{Errors: FieldErrors{}})
		return
	}

	var form SignupForm
	form.Errors = bindForm(ctx, &form)
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)

	if form.Username != "" && len(form.Errors["username"]) == 0 {
		if problem := usernameProblem(form.Username); problem != "" {
			form.Errors.Add("username", problem)
		} else {
			_, err := a.users.FindByUsername(ctx.Request.Context(), form.Username)
			switch {
			case err == nil:
				form.Errors.Add("username", "A user with that username already exists.")
			case !errors.Is(err, repository.ErrNotFound):
				utils.ServerError(ctx, err)
				return
			}
		}
	}
	if form.Password1 != "" && form.Password2 != "" {
		if form.Password1 != form.Password2 {
			form.Errors.Add("password2", "The two password fields didn't match.")
		} else {
			for _, problem := range utils.PasswordProblems(form.Password2, form.Username) {
				form.Errors.Add("password2", problem)
			}
		}
	}
	if !form.Errors.Empty() {
		a.render(ctx, "signup.html", form)
		return
	}

	hash, err := utils.HashPassword(form.Password1)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	user := models.User{
		Username:     form.Username,
		FirstName:    strings.TrimSpace(form.FirstName),
		LastName:     strings.TrimSpace(form.LastName),
		Email:        form.Email,
		PasswordHash: hash,
	}
	if err := a.users.Create(ctx.Request.Context(), &user); err != nil {
		utils.ServerError(ctx, err)
		return
	}
	utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username, "ip", ctx.ClientIP())
	ctx.Redirect(http.StatusFound, middleware.LoginURL)
}

// Login verifies credentials, stores a JWT in the session cookie and follows next.
func (a *AuthController) Login(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodPost {
		a.render(ctx, "login.html", LoginForm{Next: ctx.Query("next"), Errors: FieldErrors{}})
		return
	}

	var form LoginForm
	form.Errors = bindForm(ctx, &form)
	if !form.Errors.Empty() {
		a.render(ctx, "login.html", form)
		return
	}

	user, err := a.users.FindByUsername(ctx.Request.Context(), strings.TrimSpace(form.Username))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		utils.ServerError(ctx, err)
		return
	}
	if err != nil || !utils.CheckPassword(user.PasswordHash, form.Password) {
		form.Errors.Add(nonFieldErrors, "Please enter a correct username and password. Note that both fields may be case-sensitive.")
		a.render(ctx, "login.html", form)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, a.tokenTTL)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookieName, token, int(a.tokenTTL.Seconds()), "/", "", a.cookieSecure, true)
	ctx.Redirect(http.StatusFound, safeNext(form.Next))
}

// Logout blacklists the current token until it expires and drops the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token := ctx.GetString(middleware.ContextTokenKey); token != "" {
		expiresAt := time.Now().Add(a.tokenTTL)
		if claims, err := utils.ParseToken(token); err == nil {
			expiresAt = claims.TokenExpiry()
		}
		utils.BlacklistToken(token, expiresAt)
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookieName, "", -1, "/", "", a.cookieSecure, true)
	ctx.Redirect(http.StatusFound, "/")
}

func (a *AuthController) render(ctx *gin.Context, page string, form interface{}) {
	ctx.HTML(http.StatusOK, page, gin.H{
		"user": middleware.CurrentUser(ctx),
		"form": form,
	})
}
