package orders_sync

import (
	"github.com/yungbote/policylens-backend/internal/data/repos"
	"github.com/yungbote/policylens-backend/internal/platform/fedreg"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/services"
)

// Pipeline pulls new executive orders from the Federal Register feed,
// resolves their issuing officials against the registry, tags them against
// the theme taxonomy, and upserts them by external id.
type Pipeline struct {
	log       *logger.Logger
	orders    repos.OrderRepo
	officials repos.OfficialRepo
	registry  services.RegistryService
	feed      fedreg.Client
}

func New(
	baseLog *logger.Logger,
	orders repos.OrderRepo,
	officials repos.OfficialRepo,
	registry services.RegistryService,
	feed fedreg.Client,
) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", services.JobTypeOrdersSync),
		orders:    orders,
		officials: officials,
		registry:  registry,
		feed:      feed,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeOrdersSync }
