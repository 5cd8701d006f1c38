package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/jobs/pipeline/digest_refresh"
	"github.com/yungbote/policylens-backend/internal/jobs/pipeline/orders_sync"
	jobrt "github.com/yungbote/policylens-backend/internal/jobs/runtime"
	"github.com/yungbote/policylens-backend/internal/jobs/worker"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

func wireWorker(db *gorm.DB, log *logger.Logger, clients Clients, reposet Repos, serviceset Services) (*worker.Worker, error) {
	log.Info("Wiring job worker...")

	registry := jobrt.NewRegistry()
	for _, kind := range []string{digests.KindTerms, digests.KindPeriods, digests.KindThemes} {
		p, err := digest_refresh.New(log, kind, serviceset.DigestRefresh)
		if err != nil {
			return nil, fmt.Errorf("build %s pipeline: %w", kind, err)
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	sync := orders_sync.New(log, reposet.Order, reposet.Official, serviceset.Registry, clients.Fedreg)
	if err := registry.Register(sync); err != nil {
		return nil, err
	}

	return worker.NewWorker(db, log, reposet.JobRun, registry, serviceset.JobNotifier), nil
}
