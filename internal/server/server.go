package server

import (
	"api-relay/internal/config"
	"api-relay/internal/handlers"
	"api-relay/internal/middleware"
	"api-relay/internal/relay"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the relay into a gin engine.
func NewRouter(cfg *config.Config, log *zap.SugaredLogger) *gin.Engine {
	return newRouter(cfg, relay.New(cfg, log), log)
}

func newRouter(cfg *config.Config, r *relay.Relay, log *zap.SugaredLogger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.Logger(log))

	testHandler := handlers.NewTestHandler(r, log)

	router.GET("/health", handlers.HealthCheck)
	router.POST("/test", testHandler.RunTest)

	return router
}
