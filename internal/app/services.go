package app

import (
	"fmt"

	"github.com/yungbote/policylens-backend/internal/modules/digest"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/services"
)

type Services struct {
	Spec digest.Spec

	JobNotifier   services.JobNotifier
	Registry      services.RegistryService
	Narrative     services.NarrativeService
	DigestQuery   services.DigestQueryService
	DigestRefresh services.DigestRefreshService
	ShareCard     services.ShareCardService
	AdminAuth     services.AdminAuthService
	Jobs          services.JobService
}

func wireServices(log *logger.Logger, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	spec, err := digest.LoadSpec(log)
	if err != nil {
		return Services{}, fmt.Errorf("load digest spec: %w", err)
	}

	notifier := services.NewJobNotifier(log, clients.JobBus, reposet.JobRunEvent)
	registrySvc := services.NewRegistryService(log, reposet.Official, reposet.ServiceInterval, reposet.Tag, clients.Redis)
	query := services.NewDigestQueryService(log, clients.DigestStore, clients.Redis)

	var narrative services.NarrativeService
	if clients.OpenAI != nil {
		narrative = services.NewNarrativeService(log, clients.OpenAI)
	}

	refresh := services.NewDigestRefreshService(log, registrySvc, reposet.Order, clients.DigestStore, narrative, query, spec)

	var cards services.ShareCardService
	if clients.Bucket != nil {
		cards, err = services.NewShareCardService(log, query, clients.Bucket)
		if err != nil {
			log.Warn("Share cards disabled", "error", err)
		}
	}

	auth, err := services.NewAdminAuthService(log)
	if err != nil {
		return Services{}, fmt.Errorf("init admin auth: %w", err)
	}

	jobs := services.NewJobService(log, reposet.JobRun, reposet.JobRunEvent, notifier)

	return Services{
		Spec:          spec,
		JobNotifier:   notifier,
		Registry:      registrySvc,
		Narrative:     narrative,
		DigestQuery:   query,
		DigestRefresh: refresh,
		ShareCard:     cards,
		AdminAuth:     auth,
		Jobs:          jobs,
	}, nil
}
