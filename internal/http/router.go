package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/policylens-backend/internal/http/handlers"
	httpMW "github.com/yungbote/policylens-backend/internal/http/middleware"
	"github.com/yungbote/policylens-backend/internal/observability"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	AdminMiddleware *httpMW.AdminMiddleware

	DigestHandler   *httpH.DigestHandler
	OfficialHandler *httpH.OfficialHandler
	TagHandler      *httpH.TagHandler
	OrderHandler    *httpH.OrderHandler
	JobHandler      *httpH.JobHandler
	AdminHandler    *httpH.AdminHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("policylens-api"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Digests (public reads)
		if cfg.DigestHandler != nil {
			api.GET("/digests/:kind", cfg.DigestHandler.GetDigest)
			api.GET("/digests/:kind/card/:key", cfg.DigestHandler.GetCard)
		}

		// Registry
		if cfg.OfficialHandler != nil {
			api.GET("/officials", cfg.OfficialHandler.ListOfficials)
			api.GET("/officials/:slug", cfg.OfficialHandler.GetOfficial)
		}
		if cfg.TagHandler != nil {
			api.GET("/tags", cfg.TagHandler.ListTags)
		}

		// Orders
		if cfg.OrderHandler != nil {
			api.GET("/orders", cfg.OrderHandler.ListOrders)
		}

		// Job status
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}

		// Admin token exchange (the api key is the credential)
		if cfg.AdminHandler != nil {
			api.POST("/admin/token", cfg.AdminHandler.IssueToken)
		}
	}

	admin := api.Group("/admin")
	{
		if cfg.AdminMiddleware != nil {
			admin.Use(cfg.AdminMiddleware.RequireAdmin())
		}

		if cfg.AdminHandler != nil {
			admin.POST("/refresh/:kind", cfg.AdminHandler.EnqueueRefresh)
			admin.POST("/sync", cfg.AdminHandler.EnqueueOrdersSync)
			admin.GET("/jobs", cfg.AdminHandler.RecentJobs)
		}
	}

	return r
}
