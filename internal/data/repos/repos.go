package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

// Repos bundles every repository behind one constructor so app wiring stays
// in one place.
type Repos struct {
	Officials        OfficialRepo
	ServiceIntervals ServiceIntervalRepo
	Tags             TagRepo
	Orders           OrderRepo
	JobRuns          JobRunRepo
	JobRunEvents     JobRunEventRepo
}

func New(db *gorm.DB, baseLog *logger.Logger) *Repos {
	return &Repos{
		Officials:        NewOfficialRepo(db, baseLog),
		ServiceIntervals: NewServiceIntervalRepo(db, baseLog),
		Tags:             NewTagRepo(db, baseLog),
		Orders:           NewOrderRepo(db, baseLog),
		JobRuns:          NewJobRunRepo(db, baseLog),
		JobRunEvents:     NewJobRunEventRepo(db, baseLog),
	}
}
