package terms

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/policylens-backend/internal/domain/orders"
)

// OpenEndYear is the sentinel exclusive end year for a term that is still open.
const OpenEndYear = 9999

// Interval is an authoritative half-open [Start, End) service span.
// A nil End means still serving.
type Interval struct {
	OfficialID uuid.UUID
	Start      time.Time
	End        *time.Time
}

// Term is a contiguous span of calendar years attributed to one official,
// either authoritative or heuristically inferred. EndYear is exclusive; an
// open term carries the OpenEndYear sentinel.
type Term struct {
	OfficialID uuid.UUID
	StartYear  int
	EndYear    int
	Open       bool
}

// Key identifies a term across runs.
type Key struct {
	OfficialID uuid.UUID
	StartYear  int
}

func (t Term) Key() Key { return Key{OfficialID: t.OfficialID, StartYear: t.StartYear} }

// Config carries the heuristic tunables. GapYears is the maximum year gap
// between consecutive orders inside one term; OpenTailYears is how stale the
// last order may be for the final term to stay open. Both are deliberately
// configurable: the defaults (2 and 1) are working assumptions, not validated
// constants.
type Config struct {
	GapYears      int
	OpenTailYears int
	Now           func() time.Time
}

func (c Config) withDefaults() Config {
	if c.GapYears <= 0 {
		c.GapYears = 2
	}
	if c.OpenTailYears <= 0 {
		c.OpenTailYears = 1
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// FromIntervals maps authoritative intervals to terms and validates them.
// Per official, intervals must be disjoint and each End must be after its
// Start; any violation fails the whole set with an error naming the official
// and the colliding bounds.
func FromIntervals(intervals []Interval) ([]Term, error) {
	byOfficial := map[uuid.UUID][]Interval{}
	for _, iv := range intervals {
		byOfficial[iv.OfficialID] = append(byOfficial[iv.OfficialID], iv)
	}

	out := make([]Term, 0, len(intervals))
	for officialID, ivs := range byOfficial {
		sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start.Before(ivs[j].Start) })
		for i, iv := range ivs {
			if iv.End != nil && !iv.End.After(iv.Start) {
				return nil, fmt.Errorf("official %s: interval end %s is not after start %s",
					officialID, iv.End.Format("2006-01-02"), iv.Start.Format("2006-01-02"))
			}
			if i > 0 {
				prev := ivs[i-1]
				if prev.End == nil || iv.Start.Before(*prev.End) {
					return nil, fmt.Errorf("official %s: overlapping service intervals (start %s collides with [%s, %s))",
						officialID,
						iv.Start.Format("2006-01-02"),
						prev.Start.Format("2006-01-02"),
						endLabel(prev.End))
				}
			}
			out = append(out, intervalTerm(iv))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].OfficialID != out[j].OfficialID {
			return out[i].OfficialID.String() < out[j].OfficialID.String()
		}
		return out[i].StartYear < out[j].StartYear
	})
	return out, nil
}

func endLabel(end *time.Time) string {
	if end == nil {
		return "open"
	}
	return end.Format("2006-01-02")
}

func intervalTerm(iv Interval) Term {
	t := Term{OfficialID: iv.OfficialID, StartYear: iv.Start.Year()}
	if iv.End == nil {
		t.EndYear = OpenEndYear
		t.Open = true
	} else {
		t.EndYear = iv.End.Year()
	}
	return t
}

// contains reports whether ts falls inside the half-open interval.
func (iv Interval) contains(ts time.Time) bool {
	if ts.Before(iv.Start) {
		return false
	}
	return iv.End == nil || ts.Before(*iv.End)
}

// FromOrders infers terms for a single official purely from order timestamps.
// Orders are sorted by SignedAt ascending; a gap of more than cfg.GapYears
// between consecutive orders closes the current term at previousYear+1. The
// final term stays open when the last order is at most cfg.OpenTailYears old.
// Empty input yields no terms.
func FromOrders(ords []orders.Order, cfg Config) []Term {
	if len(ords) == 0 {
		return nil
	}
	cfg = cfg.withDefaults()

	sorted := make([]orders.Order, len(ords))
	copy(sorted, ords)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SignedAt.Before(sorted[j].SignedAt) })

	officialID := sorted[0].OfficialID
	var out []Term
	start := sorted[0].SignedAt.Year()
	prev := start
	for _, o := range sorted[1:] {
		year := o.SignedAt.Year()
		if year-prev > cfg.GapYears {
			out = append(out, Term{OfficialID: officialID, StartYear: start, EndYear: prev + 1})
			start = year
		}
		prev = year
	}

	last := Term{OfficialID: officialID, StartYear: start}
	if cfg.Now().Year()-prev <= cfg.OpenTailYears {
		last.EndYear = OpenEndYear
		last.Open = true
	} else {
		last.EndYear = prev + 1
	}
	return append(out, last)
}

// Detect derives terms for every official appearing in ords. Officials with
// authoritative intervals get interval terms (only intervals holding at least
// one order are emitted); the rest are inferred via FromOrders. The second
// return groups orders by term key; the third collects orders that fall
// outside every authoritative interval of their official, which callers are
// expected to log rather than silently drop.
func Detect(ords []orders.Order, intervals []Interval, cfg Config) (map[uuid.UUID][]Term, map[Key][]orders.Order, []orders.Order, error) {
	if _, err := FromIntervals(intervals); err != nil {
		return nil, nil, nil, err
	}
	cfg = cfg.withDefaults()

	ivsByOfficial := map[uuid.UUID][]Interval{}
	for _, iv := range intervals {
		ivsByOfficial[iv.OfficialID] = append(ivsByOfficial[iv.OfficialID], iv)
	}
	ordsByOfficial := map[uuid.UUID][]orders.Order{}
	for _, o := range ords {
		ordsByOfficial[o.OfficialID] = append(ordsByOfficial[o.OfficialID], o)
	}

	termsByOfficial := map[uuid.UUID][]Term{}
	grouped := map[Key][]orders.Order{}
	var unassigned []orders.Order

	for officialID, officialOrders := range ordsByOfficial {
		ivs, authoritative := ivsByOfficial[officialID]
		if !authoritative {
			ts := FromOrders(officialOrders, cfg)
			termsByOfficial[officialID] = ts
			for _, o := range officialOrders {
				year := o.SignedAt.Year()
				for _, t := range ts {
					if year >= t.StartYear && year < t.EndYear {
						grouped[t.Key()] = append(grouped[t.Key()], o)
						break
					}
				}
			}
			continue
		}

		sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start.Before(ivs[j].Start) })
		seen := map[Key]bool{}
		for _, o := range officialOrders {
			matched := false
			for _, iv := range ivs {
				if iv.contains(o.SignedAt) {
					t := intervalTerm(iv)
					grouped[t.Key()] = append(grouped[t.Key()], o)
					if !seen[t.Key()] {
						seen[t.Key()] = true
						termsByOfficial[officialID] = append(termsByOfficial[officialID], t)
					}
					matched = true
					break
				}
			}
			if !matched {
				unassigned = append(unassigned, o)
			}
		}
		sort.Slice(termsByOfficial[officialID], func(i, j int) bool {
			return termsByOfficial[officialID][i].StartYear < termsByOfficial[officialID][j].StartYear
		})
	}

	return termsByOfficial, grouped, unassigned, nil
}
