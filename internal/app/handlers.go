package app

import (
	httpH "github.com/yungbote/policylens-backend/internal/http/handlers"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

type Handlers struct {
	Digest   *httpH.DigestHandler
	Official *httpH.OfficialHandler
	Tag      *httpH.TagHandler
	Order    *httpH.OrderHandler
	Job      *httpH.JobHandler
	Admin    *httpH.AdminHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, reposet Repos) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Digest:   httpH.NewDigestHandler(serviceset.DigestQuery, serviceset.ShareCard),
		Official: httpH.NewOfficialHandler(reposet.Official, reposet.ServiceInterval),
		Tag:      httpH.NewTagHandler(reposet.Tag),
		Order:    httpH.NewOrderHandler(reposet.Order, reposet.Official),
		Job:      httpH.NewJobHandler(serviceset.Jobs),
		Admin:    httpH.NewAdminHandler(serviceset.AdminAuth, serviceset.Jobs),
		Health:   httpH.NewHealthHandler(),
	}
}
