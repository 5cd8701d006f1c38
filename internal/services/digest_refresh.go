package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/policylens-backend/internal/data/digeststore"
	"github.com/yungbote/policylens-backend/internal/data/repos"
	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/domain/orders"
	"github.com/yungbote/policylens-backend/internal/domain/registry"
	"github.com/yungbote/policylens-backend/internal/modules/digest"
	"github.com/yungbote/policylens-backend/internal/modules/digest/merge"
	"github.com/yungbote/policylens-backend/internal/modules/digest/periods"
	"github.com/yungbote/policylens-backend/internal/modules/digest/terms"
	"github.com/yungbote/policylens-backend/internal/modules/digest/topics"
	"github.com/yungbote/policylens-backend/internal/observability"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

// RefreshInput scopes one refresh run. Zero Scope means every key of the kind
// is a candidate. Force regenerates in-scope keys that already exist; DryRun
// reports what a run would do without generating or writing anything.
type RefreshInput struct {
	Kind     string
	Scope    merge.Scope
	Force    bool
	DryRun   bool
	Progress func(stage string, pct int, msg string)
}

type RefreshResult struct {
	Outcome    merge.Outcome
	Candidates int
	Changed    bool
}

// DigestRefreshService runs the full recompute-and-merge cycle for one
// artifact kind: snapshot, orders, candidate derivation, paced generation,
// merge, and a conditional document rewrite. Runs are sequential by contract;
// the job store admits one claimed refresh at a time.
type DigestRefreshService interface {
	Refresh(ctx context.Context, in RefreshInput) (RefreshResult, error)
}

type digestRefreshService struct {
	log       *logger.Logger
	registry  RegistryService
	orders    repos.OrderRepo
	store     digeststore.Store
	narrative NarrativeService
	query     DigestQueryService
	spec      digest.Spec
}

// NewDigestRefreshService wires the refresh orchestration. narrative may be
// nil, in which case entries are built from statistics alone; query may be
// nil when no read cache is deployed.
func NewDigestRefreshService(
	baseLog *logger.Logger,
	registrySvc RegistryService,
	orderRepo repos.OrderRepo,
	store digeststore.Store,
	narrative NarrativeService,
	query DigestQueryService,
	spec digest.Spec,
) DigestRefreshService {
	return &digestRefreshService{
		log:       baseLog.With("service", "DigestRefreshService"),
		registry:  registrySvc,
		orders:    orderRepo,
		store:     store,
		narrative: narrative,
		query:     query,
		spec:      spec,
	}
}

func (s *digestRefreshService) Refresh(ctx context.Context, in RefreshInput) (RefreshResult, error) {
	kind, err := mergeKindFor(in.Kind)
	if err != nil {
		return RefreshResult{}, err
	}
	progress := in.Progress
	if progress == nil {
		progress = func(string, int, string) {}
	}
	log := s.log.With("kind", in.Kind)

	progress("snapshot", 5, "Loading registry snapshot")
	snap, err := s.registry.Snapshot(ctx)
	if err != nil {
		s.observeRefresh(in.Kind, "error")
		return RefreshResult{}, err
	}

	progress("orders", 15, "Loading orders")
	rows, err := s.orders.GetAllSortedBySignedAt(dbctx.Context{Ctx: ctx})
	if err != nil {
		s.observeRefresh(in.Kind, "error")
		return RefreshResult{}, fmt.Errorf("load orders: %w", err)
	}
	ords := make([]orders.Order, 0, len(rows))
	for _, r := range rows {
		ords = append(ords, *r)
	}

	progress("candidates", 25, "Deriving candidate keys")
	var candidates []merge.Candidate
	switch in.Kind {
	case digests.KindTerms:
		candidates, err = s.termCandidates(snap, ords, in.Scope, log)
	case digests.KindPeriods:
		candidates = s.periodCandidates(snap, ords, in.Scope)
	case digests.KindThemes:
		candidates = s.themeCandidates(snap, ords, in.Scope)
	}
	if err != nil {
		s.observeRefresh(in.Kind, "error")
		return RefreshResult{}, err
	}

	raw, err := s.store.Get(ctx, in.Kind)
	if err != nil {
		s.observeRefresh(in.Kind, "error")
		return RefreshResult{}, fmt.Errorf("load existing collection: %w", err)
	}
	existing := merge.Decode(raw, log)

	if in.DryRun {
		res := dryRunResult(existing, kind, candidates, in.Force)
		log.Info("Dry run complete",
			"candidates", res.Candidates,
			"would_generate", res.Outcome.Generated,
			"would_skip", res.Outcome.Skipped)
		return res, nil
	}

	policy := merge.PolicySkip
	if in.Force {
		policy = merge.PolicyForce
	}

	progress("generate", 30, fmt.Sprintf("Generating entries for %d candidate keys", len(candidates)))
	merged, outcome, changed, err := merge.Run(ctx, existing, kind, policy, candidates, s.spec.NewPacer(), nil, log)
	if err != nil {
		s.observeRefresh(in.Kind, "error")
		return RefreshResult{Outcome: outcome, Candidates: len(candidates)}, err
	}

	if m := observability.Current(); m != nil {
		m.ObserveDigestEntries(in.Kind, outcome.Kept, outcome.Generated, outcome.Skipped, outcome.Failed)
	}

	if changed {
		progress("persist", 90, "Writing merged collection")
		doc, err := json.Marshal(merged)
		if err != nil {
			s.observeRefresh(in.Kind, "error")
			return RefreshResult{Outcome: outcome, Candidates: len(candidates)}, fmt.Errorf("encode merged collection: %w", err)
		}
		if err := s.store.Put(ctx, in.Kind, doc); err != nil {
			s.observeRefresh(in.Kind, "error")
			return RefreshResult{Outcome: outcome, Candidates: len(candidates)}, fmt.Errorf("persist merged collection: %w", err)
		}
		if s.query != nil {
			s.query.Invalidate(ctx, in.Kind)
		}
	}

	s.observeRefresh(in.Kind, "ok")
	log.Info("Digest refresh complete",
		"candidates", len(candidates),
		"kept", outcome.Kept,
		"generated", outcome.Generated,
		"skipped", outcome.Skipped,
		"failed", outcome.Failed,
		"changed", changed)
	return RefreshResult{Outcome: outcome, Candidates: len(candidates), Changed: changed}, nil
}

func mergeKindFor(kind string) (merge.Kind, error) {
	switch kind {
	case digests.KindTerms:
		return merge.Terms(), nil
	case digests.KindPeriods:
		return merge.Periods(), nil
	case digests.KindThemes:
		return merge.Themes(), nil
	default:
		return merge.Kind{}, fmt.Errorf("unknown digest kind %q", kind)
	}
}

// dryRunResult replays the skip/generate decision per candidate without
// invoking any generator.
func dryRunResult(existing merge.Collection, kind merge.Kind, candidates []merge.Candidate, force bool) RefreshResult {
	existingKeys := map[string]bool{}
	for _, raw := range existing.Entries {
		if key, err := kind.KeyOf(raw); err == nil {
			existingKeys[key] = true
		}
	}
	var out merge.Outcome
	for _, c := range candidates {
		if !force && existingKeys[c.Key] {
			out.Skipped++
		} else {
			out.Generated++
		}
	}
	return RefreshResult{Outcome: out, Candidates: len(candidates)}
}

func scopeMatches(scope merge.Scope, identity map[string]any) bool {
	raw, err := json.Marshal(identity)
	if err != nil {
		return false
	}
	return scope.Matches(raw)
}

func (s *digestRefreshService) termCandidates(snap *registry.Snapshot, ords []orders.Order, scope merge.Scope, log *logger.Logger) ([]merge.Candidate, error) {
	var ivs []terms.Interval
	for _, o := range snap.Officials() {
		for _, iv := range snap.Intervals(o.ID) {
			ivs = append(ivs, terms.Interval{OfficialID: iv.OfficialID, Start: iv.StartDate, End: iv.EndDate})
		}
	}
	cfg := terms.Config{GapYears: s.spec.Terms.GapYears, OpenTailYears: s.spec.Terms.OpenTailYears}

	byOfficial, grouped, unassigned, err := terms.Detect(ords, ivs, cfg)
	if err != nil {
		return nil, fmt.Errorf("term detection: %w", err)
	}
	if len(unassigned) > 0 {
		log.Warn("Orders fall outside every authoritative interval of their official",
			"count", len(unassigned))
	}

	var all []terms.Term
	for _, ts := range byOfficial {
		all = append(all, ts...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].OfficialID != all[j].OfficialID {
			return all[i].OfficialID.String() < all[j].OfficialID.String()
		}
		return all[i].StartYear < all[j].StartYear
	})

	var out []merge.Candidate
	for _, t := range all {
		t := t
		if !scopeMatches(scope, map[string]any{"official_id": t.OfficialID, "start_year": t.StartYear}) {
			continue
		}
		out = append(out, merge.Candidate{
			Key: fmt.Sprintf("%s:%d", t.OfficialID, t.StartYear),
			Generate: func(ctx context.Context) (json.RawMessage, error) {
				return s.buildTermEntry(ctx, snap, t, grouped[t.Key()])
			},
		})
	}
	return out, nil
}

func (s *digestRefreshService) buildTermEntry(ctx context.Context, snap *registry.Snapshot, t terms.Term, group []orders.Order) (json.RawMessage, error) {
	official, ok := snap.Official(t.OfficialID)
	if !ok {
		return nil, fmt.Errorf("official %s not present in registry snapshot", t.OfficialID)
	}

	themeCounts := topics.Count(group, snap, topics.Themes)
	helpedCounts := topics.Count(group, snap, topics.PopulationsHelped)
	hurtCounts := topics.Count(group, snap, topics.PopulationsHurt)

	entry := digests.TermEntry{
		OfficialID:   t.OfficialID,
		OfficialSlug: official.Slug,
		OfficialName: official.FullName,
		StartYear:    t.StartYear,
		EndYear:      t.EndYear,
		Open:         t.Open,
		OrderCount:   len(group),
		TopThemes:    topics.Stats(themeCounts, s.spec.Topics.TopTags),
		Helped:       topics.Stats(helpedCounts, s.spec.Topics.TopTags),
		Hurt:         topics.Stats(hurtCounts, s.spec.Topics.TopTags),
		GeneratedAt:  time.Now().UTC(),
	}

	if s.narrative != nil {
		n, model, err := s.narrative.TermNarrative(ctx, TermNarrativeInput{
			OfficialName: official.FullName,
			StartYear:    t.StartYear,
			EndYear:      t.EndYear,
			Open:         t.Open,
			OrderCount:   len(group),
			ThemeProse:   topics.Prose(themeCounts, s.spec.Topics.MaxShow),
			HelpedProse:  topics.Prose(helpedCounts, s.spec.Topics.MaxShow),
			HurtProse:    topics.Prose(hurtCounts, s.spec.Topics.MaxShow),
		})
		if err != nil {
			return nil, err
		}
		entry.Narrative = n
		entry.Model = model
	}

	return json.Marshal(entry)
}

func (s *digestRefreshService) periodCandidates(snap *registry.Snapshot, ords []orders.Order, scope merge.Scope) []merge.Candidate {
	buckets := periods.Bucketize(ords, s.spec.Granularity())

	var out []merge.Candidate
	for _, b := range buckets {
		b := b
		if !scopeMatches(scope, map[string]any{"period": string(b.Key)}) {
			continue
		}
		out = append(out, merge.Candidate{
			Key: string(b.Key),
			Generate: func(ctx context.Context) (json.RawMessage, error) {
				return s.buildPeriodEntry(ctx, snap, b)
			},
		})
	}
	return out
}

func (s *digestRefreshService) buildPeriodEntry(ctx context.Context, snap *registry.Snapshot, b periods.Bucket) (json.RawMessage, error) {
	year, _, err := b.Key.Parse()
	if err != nil {
		return nil, fmt.Errorf("malformed period key %q: %w", b.Key, err)
	}

	themeCounts := topics.Count(b.Orders, snap, topics.Themes)
	helpedCounts := topics.Count(b.Orders, snap, topics.PopulationsHelped)
	hurtCounts := topics.Count(b.Orders, snap, topics.PopulationsHurt)

	officials := make([]digests.TransitionOfficial, 0, len(b.Officials))
	names := make([]string, 0, len(b.Officials))
	for _, o := range b.Officials {
		officials = append(officials, digests.TransitionOfficial{
			OfficialID:   o.OfficialID,
			OfficialName: o.OfficialName,
			OrderCount:   o.Count,
		})
		names = append(names, o.OfficialName)
	}

	entry := digests.PeriodEntry{
		Period:      string(b.Key),
		Granularity: string(b.Granularity),
		Year:        year,
		OrderCount:  len(b.Orders),
		Officials:   officials,
		Transition:  b.Transition(),
		TopThemes:   topics.Stats(themeCounts, s.spec.Topics.TopTags),
		Helped:      topics.Stats(helpedCounts, s.spec.Topics.TopTags),
		Hurt:        topics.Stats(hurtCounts, s.spec.Topics.TopTags),
		GeneratedAt: time.Now().UTC(),
	}

	if s.narrative != nil {
		n, model, err := s.narrative.PeriodNarrative(ctx, PeriodNarrativeInput{
			PeriodLabel:   string(b.Key),
			OfficialNames: names,
			Transition:    b.Transition(),
			OrderCount:    len(b.Orders),
			ThemeProse:    topics.Prose(themeCounts, s.spec.Topics.MaxShow),
		})
		if err != nil {
			return nil, err
		}
		entry.Narrative = n
		entry.Model = model
	}

	return json.Marshal(entry)
}

// themeKey is one (theme tag, calendar year) aggregation target.
type themeKey struct {
	TagID uuid.UUID
	Year  int
}

func (s *digestRefreshService) themeCandidates(snap *registry.Snapshot, ords []orders.Order, scope merge.Scope) []merge.Candidate {
	byYear := map[int][]orders.Order{}
	for _, o := range ords {
		y := o.SignedAt.Year()
		byYear[y] = append(byYear[y], o)
	}

	counts := map[themeKey]topics.TagCount{}
	var keys []themeKey
	for year, group := range byYear {
		for _, tc := range topics.Count(group, snap, topics.Themes) {
			if tc.Count == 0 {
				continue
			}
			k := themeKey{TagID: tc.ID, Year: year}
			counts[k] = tc
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].TagID.String() < keys[j].TagID.String()
	})

	var out []merge.Candidate
	for _, k := range keys {
		k := k
		tc := counts[k]
		if !scopeMatches(scope, map[string]any{"tag_id": k.TagID, "year": k.Year}) {
			continue
		}
		out = append(out, merge.Candidate{
			Key: fmt.Sprintf("%s:%d", k.TagID, k.Year),
			Generate: func(ctx context.Context) (json.RawMessage, error) {
				return s.buildThemeEntry(ctx, k, tc)
			},
		})
	}
	return out
}

func (s *digestRefreshService) buildThemeEntry(ctx context.Context, k themeKey, tc topics.TagCount) (json.RawMessage, error) {
	entry := digests.ThemeEntry{
		TagID:       k.TagID,
		Slug:        tc.Slug,
		Name:        tc.Name,
		Year:        k.Year,
		OrderCount:  tc.Count,
		GeneratedAt: time.Now().UTC(),
	}

	if s.narrative != nil {
		n, model, err := s.narrative.ThemeNarrative(ctx, ThemeNarrativeInput{
			ThemeName:  tc.Name,
			Year:       k.Year,
			OrderCount: tc.Count,
		})
		if err != nil {
			return nil, err
		}
		entry.Narrative = n
		entry.Model = model
	}

	return json.Marshal(entry)
}

func (s *digestRefreshService) observeRefresh(kind, status string) {
	if m := observability.Current(); m != nil {
		m.ObserveDigestRefresh(kind, status)
	}
}
