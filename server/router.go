package server

import (
	"net/http"
	"time"

	"downloader/domain/repository"
	"downloader/infrastructure/realtime"
	httpHandler "downloader/interfaces/http"
	"downloader/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the settings the router needs besides the handlers.
type RouterConfig struct {
	SecretKey      string
	AllowedOrigins []string
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

func InitiateRouter(
	downloadHandler httpHandler.IDownloadHandler,
	authHandler httpHandler.IAuthHandler,
	userHandler httpHandler.IUserHandler,
	hub *realtime.Hub,
	userRepository repository.IUser,
	cfg RouterConfig,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	router.GET("/auth/google", authHandler.GetAuthURL)
	router.GET("/auth/google/callback", authHandler.HandleCallback)
	router.GET("/auth/status", authHandler.Status)
	router.GET("/auth/logout", authHandler.Logout)

	api := router.Group("api")
	api.Use(middleware.Auth(userRepository, cfg.SecretKey))
	{
		api.GET("/user", userHandler.Me)

		api.POST("/download", downloadHandler.Create)
		api.GET("/download/:id", downloadHandler.Get)
		api.GET("/download/:id/file", downloadHandler.File)
		api.DELETE("/download/:id", downloadHandler.Delete)
		api.GET("/downloads", downloadHandler.List)
		api.POST("/formats", downloadHandler.Formats)

		if hub != nil {
			api.GET("/downloads/stream", hub.Serve)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return router
}
