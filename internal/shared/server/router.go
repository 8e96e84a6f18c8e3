package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"notes-backend/internal/analyses"
	"notes-backend/internal/shared/config"
	"notes-backend/internal/shared/metrics"
	"notes-backend/internal/shared/server/middleware"
	"notes-backend/internal/shared/server/respond"
)

const (
	rateGroupWrite   = "WRITE"
	rateGroupPolling = "POLLING"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, analysisHandler *analyses.Handler) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: rateGroupFor,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupWrite:   {Rate: 0.5, Burst: 10},
				rateGroupPolling: {Rate: 5, Burst: 30},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if analysisHandler != nil {
		analysisHandler.RegisterRoutes(api)
		analysisHandler.RegisterWriteRoutes(api)
	}

	return r
}

// rateGroupFor puts model-dispatching routes in the write group and
// analysis reads in the polling group.
func rateGroupFor(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/v1/analyses/upload", "/api/v1/analyses/:id/retry":
		return rateGroupWrite
	case "/api/v1/analyses":
		if c.Request.Method == http.MethodPost {
			return rateGroupWrite
		}
		return rateGroupPolling
	case "/api/v1/analyses/:id":
		return rateGroupPolling
	default:
		return ""
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
