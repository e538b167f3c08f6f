package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"newsletter-finder/config"
	"newsletter-finder/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// A logged batch never changes, so only the per-batch view is cached.
	batchCache := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	root := r.Group("/")
	root.Use(rateLimiter)
	{
		root.POST("/search", handler.Search)
		root.POST("/verify", handler.Verify)
		root.POST("/download-results", handler.DownloadResults)
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// GET /api/verifications?limit=N
		api.GET("/verifications", handler.GetVerifications)

		// GET /api/verifications/{batch_id}
		api.GET("/verifications/:batch_id", batchCache.Handler(), handler.GetVerificationBatch)
	}

	return r
}
