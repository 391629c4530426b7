package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/power-predictor/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.CORSOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Health)

	api := router.Group("/api/v1")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger))
	{
		api.POST("/sessions", handler.OpenSession)
		api.GET("/sessions/:id", handler.GetSession)
		api.PATCH("/sessions/:id/fields", handler.UpdateFields)
		api.POST("/sessions/:id/submit", handler.SubmitSession)
		api.POST("/predictions", handler.Predict)
		api.GET("/predictions/history", handler.History)
		api.GET("/metrics", handler.Metrics)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
