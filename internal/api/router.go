// Package api assembles the HTTP surface of the server.
package api

import (
	"net/http"

	"github.com/bhandras/replbox/internal/api/handlers"
	"github.com/bhandras/replbox/internal/api/middleware"
	"github.com/bhandras/replbox/internal/metrics"
	"github.com/bhandras/replbox/internal/offline"
	"github.com/bhandras/replbox/internal/session"
	"github.com/bhandras/replbox/internal/websocket"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps are the services the router exposes.
type Deps struct {
	Manager *session.Manager
	// Offline is the offline cache. Optional.
	Offline        *offline.Worker
	PublicURL      string
	AllowedOrigins []string
}

// NewRouter returns the gin engine serving the API.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	router.Use(middleware.LoggingMiddleware())
	router.Use(metrics.Middleware())

	// Root endpoint - returns plain text for client validation
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to replbox!")
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	sessionHandler := handlers.NewSessionHandler(deps.Manager, deps.PublicURL)
	offlineHandler := handlers.NewOfflineHandler(deps.Offline)
	updates := websocket.NewServer(deps.Manager, deps.PublicURL)

	v1 := router.Group("/v1")
	{
		v1.GET("/presets", sessionHandler.ListPresets)

		v1.POST("/sessions", sessionHandler.CreateSession)
		v1.GET("/sessions/:id", sessionHandler.GetSession)
		v1.GET("/sessions/:id/fragment", sessionHandler.GetFragment)
		v1.GET("/sessions/:id/share.png", sessionHandler.GetShareQR)

		// Files
		v1.POST("/sessions/:id/files", sessionHandler.AddFile)
		v1.PATCH("/sessions/:id/files", sessionHandler.UpdateFile)
		v1.DELETE("/sessions/:id/files", sessionHandler.RemoveFile)

		v1.PUT("/sessions/:id/preset", sessionHandler.SelectPreset)
		v1.PATCH("/sessions/:id/options", sessionHandler.UpdateOptions)

		// Builds
		v1.POST("/sessions/:id/build", sessionHandler.RunBuild)
		v1.POST("/sessions/:id/keys", sessionHandler.HandleKey)

		// Install
		v1.POST("/sessions/:id/install/offer", sessionHandler.OfferInstall)
		v1.POST("/sessions/:id/install/prompt", sessionHandler.ShowInstallPrompt)
		v1.POST("/sessions/:id/install/choice", sessionHandler.InstallChoice)

		v1.GET("/sessions/:id/updates", updates.HandleUpdates)
	}

	router.GET("/offline/:id/*path", offlineHandler.ServeFile)

	return router
}
