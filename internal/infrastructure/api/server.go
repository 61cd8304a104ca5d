package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the gin engine with all routes configured. The gin mode
// is left to the caller.
func NewServer(handler *Handler, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(requestLogger(logger.With("component", "http")))
	r.Use(gin.Recovery())

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/health", handler.HealthCheck)
	r.GET("/stats", handler.Stats)

	runs := r.Group("/runs")
	{
		runs.GET("/latest", handler.LatestRun)
		runs.POST("", handler.TriggerRun)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
