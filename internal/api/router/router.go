package router

import (
	"context"
	"net/http"

	"github.com/cuongbtq/company-ingest/internal/api/handler"
	"github.com/gin-gonic/gin"
)

const (
	healthPath  = "/health"
	metricsPath = "/metrics"
)

// Options holds router-level collaborators that handlers don't need.
// Everything except ServiceName is optional.
type Options struct {
	ServiceName    string
	Metrics        HTTPRecorder
	MetricsHandler http.Handler
	// HealthCheck reports a dependency failure as a degraded service
	HealthCheck func(ctx context.Context) error
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	if opts.Metrics != nil {
		r.Use(MetricsMiddleware(opts.Metrics))
	}

	r.GET(healthPath, healthHandler(opts))

	if opts.MetricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(opts.MetricsHandler))
	}

	jobHandler := handler.NewJobHandler(deps)

	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/companies/scrape - Submit a company for scraping
		v1.POST("/companies/scrape", jobHandler.ScrapeCompany)

		jobs := v1.Group("/jobs")
		{
			// GET /api/v1/jobs - List submitted jobs
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get job status
			jobs.GET("/:job_id", jobHandler.GetJob)

			// POST /api/v1/jobs/:job_id/fallback - Route a job to the custom crawler queue
			jobs.POST("/:job_id/fallback", jobHandler.FallbackJob)
		}
	}

	return r
}

func healthHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.HealthCheck != nil {
			if err := opts.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "degraded",
					"service": opts.ServiceName,
					"error":   err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": opts.ServiceName,
		})
	}
}
