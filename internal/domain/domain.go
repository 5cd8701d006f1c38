package domain

import (
	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/domain/jobs"
	"github.com/yungbote/policylens-backend/internal/domain/orders"
	"github.com/yungbote/policylens-backend/internal/domain/registry"
)

type Official = registry.Official
type ServiceInterval = registry.ServiceInterval
type Tag = registry.Tag
type TagKind = registry.TagKind
type Snapshot = registry.Snapshot

type Order = orders.Order

type Narrative = digests.Narrative
type TagStat = digests.TagStat
type TermEntry = digests.TermEntry
type PeriodEntry = digests.PeriodEntry
type ThemeEntry = digests.ThemeEntry
type TransitionOfficial = digests.TransitionOfficial

type JobRun = jobs.JobRun
type JobRunEvent = jobs.JobRunEvent

const (
	TagKindTheme      = registry.TagKindTheme
	TagKindPopulation = registry.TagKindPopulation
)
