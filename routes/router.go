package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/repository"
	"github.com/cppla/yatube/templates"
	"github.com/cppla/yatube/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.Gin.Mode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = int64(max(cfg.Media.MaxUploadMB, 1)) << 20

	// Access logs go to their own rolling file; without a path they share the app logger
	gl := utils.Logger
	if cfg.Gin.LogPath != "" {
		if fl, err := utils.NewRollingFileLogger(cfg.Gin.LogPath, cfg.Log); err == nil {
			gl = fl
		} else {
			utils.Sugar.Warnf("gin access log disabled: %v", err)
		}
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true, utils.InternalError))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.App.AllowedOrigins) == 0 || (len(cfg.App.AllowedOrigins) == 1 && cfg.App.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.App.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	if cfg.App.Gzip {
		// images are already compressed
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/media/"})))
	}

	r.SetHTMLTemplate(templates.Load())
	r.Static("/media", cfg.Media.Dir)

	users := repository.NewUserRepository(db)
	limiter := middleware.NewRateLimiter(cfg.App.RateLimitPerMinute)
	r.Use(middleware.LoadUser(users), limiter.Middleware())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	postController := controllers.NewPostController(db)
	authController := controllers.NewAuthController(db)
	aboutController := controllers.NewAboutController()

	r.GET("/", postController.Index)
	r.GET("/group/:slug/", postController.GroupPosts)
	r.GET("/about/author/", aboutController.Author)
	r.GET("/about/tech/", aboutController.Tech)

	auth := r.Group("/auth")
	auth.GET("/signup/", authController.Signup)
	auth.POST("/signup/", authController.Signup)
	auth.GET("/login/", authController.Login)
	auth.POST("/login/", authController.Login)
	auth.GET("/logout/", authController.Logout)
	auth.POST("/logout/", authController.Logout)

	protected := r.Group("")
	protected.Use(middleware.LoginRequired())
	protected.GET("/new/", postController.NewPost)
	protected.POST("/new/", postController.NewPost)
	protected.GET("/:username/:post_id/edit/", postController.PostEdit)
	protected.POST("/:username/:post_id/edit/", postController.PostEdit)
	protected.POST("/:username/:post_id/comment", postController.AddComment)

	r.GET("/:username/", postController.Profile)
	r.GET("/:username/:post_id/", postController.PostView)

	r.NoRoute(utils.NotFound)
	return r
}
