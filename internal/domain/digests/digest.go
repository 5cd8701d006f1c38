package digests

import (
	"time"

	"github.com/google/uuid"
)

// Artifact kinds. Each kind is persisted as one whole JSON document.
const (
	KindTerms   = "term_digests"
	KindPeriods = "period_digests"
	KindThemes  = "theme_digests"
)

func KnownKind(kind string) bool {
	switch kind {
	case KindTerms, KindPeriods, KindThemes:
		return true
	default:
		return false
	}
}

// Narrative is the strict-schema output of the narrative model for one entry.
type Narrative struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Impact   string `json:"impact"`
}

// TagStat is a ranked tag frequency as persisted inside a digest entry.
type TagStat struct {
	TagID uuid.UUID `json:"tag_id"`
	Slug  string    `json:"slug"`
	Name  string    `json:"name"`
	Count int       `json:"count"`
}

// TermEntry summarizes one official's term. Identity key: official_id + start_year.
type TermEntry struct {
	OfficialID   uuid.UUID  `json:"official_id"`
	OfficialSlug string     `json:"official_slug"`
	OfficialName string     `json:"official_name"`
	StartYear    int        `json:"start_year"`
	EndYear      int        `json:"end_year"`
	Open         bool       `json:"open"`
	OrderCount   int        `json:"order_count"`
	TopThemes    []TagStat  `json:"top_themes,omitempty"`
	Helped       []TagStat  `json:"helped,omitempty"`
	Hurt         []TagStat  `json:"hurt,omitempty"`
	Narrative    *Narrative `json:"narrative,omitempty"`
	Model        string     `json:"model,omitempty"`
	GeneratedAt  time.Time  `json:"generated_at"`
}

// TransitionOfficial is one official's share of a transition bucket, ordered by
// earliest order inside the bucket (outgoing official first).
type TransitionOfficial struct {
	OfficialID   uuid.UUID `json:"official_id"`
	OfficialName string    `json:"official_name"`
	OrderCount   int       `json:"order_count"`
}

// PeriodEntry summarizes one calendar bucket. Identity key: the period key.
type PeriodEntry struct {
	Period      string               `json:"period"`
	Granularity string               `json:"granularity"`
	Year        int                  `json:"year"`
	OrderCount  int                  `json:"order_count"`
	Officials   []TransitionOfficial `json:"officials"`
	Transition  bool                 `json:"transition"`
	TopThemes   []TagStat            `json:"top_themes,omitempty"`
	Helped      []TagStat            `json:"helped,omitempty"`
	Hurt        []TagStat            `json:"hurt,omitempty"`
	Narrative   *Narrative           `json:"narrative,omitempty"`
	Model       string               `json:"model,omitempty"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// ThemeEntry summarizes one theme tag across one calendar year.
// Identity key: tag_id + year.
type ThemeEntry struct {
	TagID       uuid.UUID  `json:"tag_id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Year        int        `json:"year"`
	OrderCount  int        `json:"order_count"`
	Narrative   *Narrative `json:"narrative,omitempty"`
	Model       string     `json:"model,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}
