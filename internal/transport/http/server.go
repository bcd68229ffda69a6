package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/heartlinkhq/heartlink-server/internal/config"
	"github.com/heartlinkhq/heartlink-server/internal/core"
	"github.com/heartlinkhq/heartlink-server/internal/messaging"
	"github.com/heartlinkhq/heartlink-server/internal/store"
)

// NewServer builds the HTTP server with REST routes and the websocket bridge.
func NewServer(hub *core.Hub, service *messaging.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	wsHandler := NewWSHandler(hub, logger)
	router.GET("/ws", gin.WrapH(wsHandler))

	handlers := NewMessageHandlers(service, logger)

	api := router.Group("/api/messages")
	api.Use(IdentityMiddleware(st, logger))
	{
		api.POST("/send", handlers.Send)
		api.GET("/conversation/:userId", handlers.Conversation)
		api.PUT("/seen/:messageId", handlers.MarkSeen)
		api.POST("/heartbeat", handlers.Heartbeat)
		api.GET("/online-users", handlers.OnlineUsers)
		api.DELETE("/delete-for-me/:messageId", handlers.DeleteForMe)
		api.POST("/unsend/:messageId", handlers.Unsend)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
