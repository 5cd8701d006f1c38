package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/policylens-backend/internal/data/repos"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

type Repos struct {
	Official        repos.OfficialRepo
	ServiceInterval repos.ServiceIntervalRepo
	Tag             repos.TagRepo
	Order           repos.OrderRepo
	JobRun          repos.JobRunRepo
	JobRunEvent     repos.JobRunEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Official:        repos.NewOfficialRepo(db, log),
		ServiceInterval: repos.NewServiceIntervalRepo(db, log),
		Tag:             repos.NewTagRepo(db, log),
		Order:           repos.NewOrderRepo(db, log),
		JobRun:          repos.NewJobRunRepo(db, log),
		JobRunEvent:     repos.NewJobRunEventRepo(db, log),
	}
}
