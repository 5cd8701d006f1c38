package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/modules/digest/periods"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/platform/pacing"
)

type Policy string

const (
	// PolicySkip leaves keys that already exist in the persisted collection
	// untouched: not recomputed, not rewritten.
	PolicySkip Policy = "skip"
	// PolicyForce regenerates and replaces every in-scope key.
	PolicyForce Policy = "force"
)

// Collection is the persisted shape of one artifact kind. Entries are kept as
// raw JSON so that out-of-scope entries round-trip byte-identical.
type Collection struct {
	Entries     []json.RawMessage `json:"entries"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Decode parses a persisted collection. Missing or malformed data is treated
// as an empty collection, never as a fatal error.
func Decode(data []byte, log *logger.Logger) Collection {
	if len(data) == 0 {
		return Collection{}
	}
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		if log != nil {
			log.Warn("malformed persisted collection; treating as empty", "error", err)
		}
		return Collection{}
	}
	return c
}

// Scope narrows which identity keys are candidates for a run. Nil fields
// match everything; an entry is in scope when every non-nil field matches.
type Scope struct {
	OfficialID *uuid.UUID
	Year       *int
	PeriodKey  *string
	TagID      *uuid.UUID
}

func (s Scope) Matches(raw json.RawMessage) bool {
	var p entryProbe
	if err := json.Unmarshal(raw, &p); err != nil {
		return false
	}
	if s.OfficialID != nil && (p.OfficialID == nil || *p.OfficialID != *s.OfficialID) {
		return false
	}
	if s.PeriodKey != nil && (p.Period == nil || *p.Period != *s.PeriodKey) {
		return false
	}
	if s.TagID != nil && (p.TagID == nil || *p.TagID != *s.TagID) {
		return false
	}
	if s.Year != nil {
		if !probeYearMatches(p, *s.Year) {
			return false
		}
	}
	return true
}

func probeYearMatches(p entryProbe, year int) bool {
	if p.StartYear != nil {
		return *p.StartYear == year
	}
	if p.Year != nil {
		return *p.Year == year
	}
	if p.Period != nil {
		if y, _, err := periods.Key(*p.Period).Parse(); err == nil {
			return y == year
		}
	}
	return false
}

// entryProbe is the minimal field set shared by all entry shapes, used for
// keying, scoping, and canonical ordering without disturbing unknown fields.
type entryProbe struct {
	OfficialID   *uuid.UUID `json:"official_id"`
	OfficialSlug *string    `json:"official_slug"`
	StartYear    *int       `json:"start_year"`
	Period       *string    `json:"period"`
	Year         *int       `json:"year"`
	TagID        *uuid.UUID `json:"tag_id"`
	OrderCount   *int       `json:"order_count"`
}

// Kind binds an artifact kind to its identity key extractor and canonical
// comparator. Collection order is always re-derivable by sorting alone.
type Kind struct {
	Name  string
	KeyOf func(raw json.RawMessage) (string, error)
	Less  func(a, b json.RawMessage) bool
}

func probe(raw json.RawMessage) (entryProbe, error) {
	var p entryProbe
	if err := json.Unmarshal(raw, &p); err != nil {
		return entryProbe{}, err
	}
	return p, nil
}

// Terms: one entry per (official, term start year); newest terms first, slug
// ascending among equals.
func Terms() Kind {
	return Kind{
		Name: digests.KindTerms,
		KeyOf: func(raw json.RawMessage) (string, error) {
			p, err := probe(raw)
			if err != nil {
				return "", err
			}
			if p.OfficialID == nil || p.StartYear == nil {
				return "", fmt.Errorf("term entry missing official_id or start_year")
			}
			return fmt.Sprintf("%s:%d", p.OfficialID, *p.StartYear), nil
		},
		Less: func(a, b json.RawMessage) bool {
			pa, errA := probe(a)
			pb, errB := probe(b)
			if errA != nil || errB != nil {
				return errA == nil
			}
			ya, yb := intOr(pa.StartYear, 0), intOr(pb.StartYear, 0)
			if ya != yb {
				return ya > yb
			}
			return strOr(pa.OfficialSlug, "") < strOr(pb.OfficialSlug, "")
		},
	}
}

// Periods: one entry per period key; most recent period first.
func Periods() Kind {
	return Kind{
		Name: digests.KindPeriods,
		KeyOf: func(raw json.RawMessage) (string, error) {
			p, err := probe(raw)
			if err != nil {
				return "", err
			}
			if p.Period == nil || *p.Period == "" {
				return "", fmt.Errorf("period entry missing period key")
			}
			return *p.Period, nil
		},
		Less: func(a, b json.RawMessage) bool {
			pa, errA := probe(a)
			pb, errB := probe(b)
			if errA != nil || errB != nil {
				return errA == nil
			}
			ka := periods.Key(strOr(pa.Period, ""))
			kb := periods.Key(strOr(pb.Period, ""))
			return kb.Before(ka)
		},
	}
}

// Themes: one entry per (tag, year); order count descending, then year
// descending, then tag id ascending.
func Themes() Kind {
	return Kind{
		Name: digests.KindThemes,
		KeyOf: func(raw json.RawMessage) (string, error) {
			p, err := probe(raw)
			if err != nil {
				return "", err
			}
			if p.TagID == nil || p.Year == nil {
				return "", fmt.Errorf("theme entry missing tag_id or year")
			}
			return fmt.Sprintf("%s:%d", p.TagID, *p.Year), nil
		},
		Less: func(a, b json.RawMessage) bool {
			pa, errA := probe(a)
			pb, errB := probe(b)
			if errA != nil || errB != nil {
				return errA == nil
			}
			ca, cb := intOr(pa.OrderCount, 0), intOr(pb.OrderCount, 0)
			if ca != cb {
				return ca > cb
			}
			ya, yb := intOr(pa.Year, 0), intOr(pb.Year, 0)
			if ya != yb {
				return ya > yb
			}
			return uuidOr(pa.TagID).String() < uuidOr(pb.TagID).String()
		},
	}
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func strOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func uuidOr(p *uuid.UUID) uuid.UUID {
	if p == nil {
		return uuid.Nil
	}
	return *p
}

// Candidate is one in-scope identity key plus the generator that produces its
// entry. Generate runs at most once per candidate per run.
type Candidate struct {
	Key      string
	Generate func(ctx context.Context) (json.RawMessage, error)
}

type Outcome struct {
	Kept      int
	Generated int
	Skipped   int
	Failed    int
}

// Run reconciles candidates against an existing collection. Per candidate the
// state machine is two-phase: SKIP (key present and policy is skip) or
// GENERATE, and a generate always terminates in a merge decision for that key.
// A generator failure is logged and counted; no partial entry is merged and
// any existing entry for the key survives untouched. Entries whose key is not
// a candidate pass through byte-identical. The returned bool reports whether
// anything was generated; when false the caller must not rewrite the document,
// which keeps a no-op run byte-level idempotent.
func Run(ctx context.Context, existing Collection, kind Kind, policy Policy, candidates []Candidate, pacer pacing.Pacer, now func() time.Time, log *logger.Logger) (Collection, Outcome, bool, error) {
	if now == nil {
		now = time.Now
	}
	if pacer == nil {
		pacer = pacing.None{}
	}
	if log != nil {
		log = log.With("artifact_kind", kind.Name)
	}

	existingKeys := map[string]bool{}
	for _, raw := range existing.Entries {
		key, err := kind.KeyOf(raw)
		if err != nil {
			if log != nil {
				log.Warn("existing entry is unkeyable; passing through", "error", err)
			}
			continue
		}
		existingKeys[key] = true
	}

	var outcome Outcome
	replaced := map[string]json.RawMessage{}

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return Collection{}, outcome, false, err
		}
		if policy != PolicyForce && existingKeys[cand.Key] {
			outcome.Skipped++
			continue
		}
		if err := pacer.Wait(ctx); err != nil {
			return Collection{}, outcome, false, err
		}
		raw, err := cand.Generate(ctx)
		if err != nil {
			outcome.Failed++
			if log != nil {
				log.Warn("entry generation failed; continuing", "key", cand.Key, "error", err)
			}
			continue
		}
		gotKey, err := kind.KeyOf(raw)
		if err != nil || gotKey != cand.Key {
			outcome.Failed++
			if log != nil {
				log.Warn("generated entry does not carry its candidate key; dropping",
					"key", cand.Key, "got_key", gotKey, "error", err)
			}
			continue
		}
		replaced[cand.Key] = raw
		outcome.Generated++
	}

	merged := Collection{GeneratedAt: existing.GeneratedAt}
	for _, raw := range existing.Entries {
		key, err := kind.KeyOf(raw)
		if err == nil {
			if _, ok := replaced[key]; ok {
				merged.Entries = append(merged.Entries, replaced[key])
				delete(replaced, key)
				continue
			}
		}
		merged.Entries = append(merged.Entries, raw)
		outcome.Kept++
	}
	// New keys, appended before the canonical re-sort.
	for _, cand := range candidates {
		if raw, ok := replaced[cand.Key]; ok {
			merged.Entries = append(merged.Entries, raw)
			delete(replaced, cand.Key)
		}
	}

	sort.SliceStable(merged.Entries, func(i, j int) bool {
		return kind.Less(merged.Entries[i], merged.Entries[j])
	})

	changed := outcome.Generated > 0
	if changed {
		merged.GeneratedAt = now().UTC()
	}
	return merged, outcome, changed, nil
}
