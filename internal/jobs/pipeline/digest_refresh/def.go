package digest_refresh

import (
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/services"
)

// Pipeline runs one digest refresh job type. One instance is registered per
// artifact kind, so term, period, and theme refreshes queue independently.
type Pipeline struct {
	log     *logger.Logger
	kind    string
	jobType string
	refresh services.DigestRefreshService
}

func New(baseLog *logger.Logger, kind string, refresh services.DigestRefreshService) (*Pipeline, error) {
	jobType, err := services.JobTypeForKind(kind)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		log:     baseLog.With("job", jobType),
		kind:    kind,
		jobType: jobType,
		refresh: refresh,
	}, nil
}

func (p *Pipeline) Type() string { return p.jobType }
