package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes собирает gin-движок со всеми маршрутами.
func SetupRoutes(h *Handler, limiter *RateLimiter, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger(log))
	r.Use(CORS())

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/analyze", limiter.Middleware(), h.Analyze)
	}

	return r
}
