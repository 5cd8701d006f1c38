package app

import (
	httpMW "github.com/yungbote/policylens-backend/internal/http/middleware"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

type Middleware struct {
	Admin *httpMW.AdminMiddleware
}

func wireMiddleware(log *logger.Logger, serviceset Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Admin: httpMW.NewAdminMiddleware(log, serviceset.AdminAuth),
	}
}
