package app

import (
	"github.com/gin-gonic/gin"

	policyhttp "github.com/yungbote/policylens-backend/internal/http"
	"github.com/yungbote/policylens-backend/internal/observability"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, metrics *observability.Metrics, handlerset Handlers, mw Middleware) *gin.Engine {
	return policyhttp.NewRouter(policyhttp.RouterConfig{
		Log:     log,
		Metrics: metrics,

		AdminMiddleware: mw.Admin,

		DigestHandler:   handlerset.Digest,
		OfficialHandler: handlerset.Official,
		TagHandler:      handlerset.Tag,
		OrderHandler:    handlerset.Order,
		JobHandler:      handlerset.Job,
		AdminHandler:    handlerset.Admin,

		HealthHandler: handlerset.Health,
	})
}
