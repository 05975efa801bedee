package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ecomsupport/shopchat-server/internal/auth"
	"github.com/ecomsupport/shopchat-server/internal/config"
	"github.com/ecomsupport/shopchat-server/internal/core"
	"github.com/ecomsupport/shopchat-server/internal/media"
	"github.com/ecomsupport/shopchat-server/internal/store"
)

// NewServer builds the HTTP server: widget and console sockets plus the
// small REST surface.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, uploader media.Uploader, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	verifier := auth.NewVerifier(logger)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, st, verifier, logger)))
	router.GET("/admin/ws", gin.WrapH(NewAdminWSHandler(hub, authService, logger)))

	apiHandlers := NewAPIHandlers(authService, uploader, logger)
	api := router.Group("/api")
	{
		api.POST("/admin/login", apiHandlers.AdminLogin)
		api.POST("/upload", apiHandlers.Upload)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
