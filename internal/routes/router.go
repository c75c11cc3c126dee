package routes

import (
	"net/http"

	"account-service/internal/account"
	"account-service/internal/config"
	"account-service/internal/database"
	"account-service/internal/logger"
	"account-service/internal/mailer"
	"account-service/internal/middleware"
	"account-service/pkg/apperror"

	"github.com/gin-gonic/gin"
)

func Setup(cfg *config.Config, db *database.Database) *gin.Engine {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order matters: the error handler must wrap everything that can fail.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(&cfg.CORS))
	router.Use(middleware.RequestSizeLimit(middleware.DefaultMaxRequestSize))
	router.Use(middleware.RateLimit(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))
	router.Use(middleware.ErrorHandler(cfg))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "service is running",
		})
	})

	repo := account.NewRepository(db)

	var sender mailer.Sender = mailer.LogSender{}
	if cfg.SMTP.Host != "" {
		sender = mailer.NewSMTPSender(cfg.SMTP)
	}

	accountService := account.NewService(repo, cfg, sender)
	accountHandler := account.NewHandler(accountService, cfg)

	v1 := router.Group("/api/v1")
	{
		accountHandler.RegisterPublicRoutes(v1)
		v1.GET("/users/session", middleware.OptionalAuth(repo, cfg), accountHandler.Session)

		protected := v1.Group("")
		protected.Use(middleware.RequireAuth(repo, cfg))
		{
			accountHandler.RegisterProtectedRoutes(protected)

			admin := protected.Group("")
			admin.Use(middleware.RequireRole(account.RoleAdmin))
			{
				accountHandler.RegisterAdminRoutes(admin)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperror.New(apperror.KindNotFound, http.StatusNotFound,
			"can't find "+c.Request.URL.Path+" on this server"))
	})

	logger.Info("All routes initialized")
	return router
}
