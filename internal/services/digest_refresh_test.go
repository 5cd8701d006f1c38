package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/policylens-backend/internal/data/digeststore"
	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/domain/orders"
	"github.com/yungbote/policylens-backend/internal/domain/registry"
	"github.com/yungbote/policylens-backend/internal/modules/digest"
	"github.com/yungbote/policylens-backend/internal/modules/digest/merge"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
)

type fakeRegistry struct {
	snap *registry.Snapshot
}

func (f *fakeRegistry) Snapshot(ctx context.Context) (*registry.Snapshot, error) {
	return f.snap, nil
}

func (f *fakeRegistry) Invalidate(ctx context.Context) {}

type fakeOrderRepo struct {
	rows []*types.Order
}

func (f *fakeOrderRepo) Create(dbc dbctx.Context, rows []*types.Order) ([]*types.Order, error) {
	return rows, nil
}

func (f *fakeOrderRepo) UpsertByExternalID(dbc dbctx.Context, rows []*types.Order) (int64, error) {
	return 0, nil
}

func (f *fakeOrderRepo) GetAllSortedBySignedAt(dbc dbctx.Context) ([]*types.Order, error) {
	return f.rows, nil
}

func (f *fakeOrderRepo) GetByOfficialID(dbc dbctx.Context, officialID uuid.UUID) ([]*types.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) GetBySignedRange(dbc dbctx.Context, from, to time.Time) ([]*types.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) GetByExternalIDs(dbc dbctx.Context, externalIDs []string) ([]*types.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) LatestSignedAt(dbc dbctx.Context) (*time.Time, error) { return nil, nil }

func (f *fakeOrderRepo) Count(dbc dbctx.Context) (int64, error) {
	return int64(len(f.rows)), nil
}

type fakeNarrative struct {
	failFor string // substring of the prompt-visible name that should fail
	calls   int
}

func (f *fakeNarrative) narrative(label string) (*digests.Narrative, string, error) {
	f.calls++
	if f.failFor != "" && label == f.failFor {
		return nil, "", fmt.Errorf("model unavailable")
	}
	return &digests.Narrative{Headline: "h", Summary: "s", Impact: "i"}, "fake-model", nil
}

func (f *fakeNarrative) TermNarrative(ctx context.Context, in TermNarrativeInput) (*digests.Narrative, string, error) {
	return f.narrative(in.OfficialName)
}

func (f *fakeNarrative) PeriodNarrative(ctx context.Context, in PeriodNarrativeInput) (*digests.Narrative, string, error) {
	return f.narrative(in.PeriodLabel)
}

func (f *fakeNarrative) ThemeNarrative(ctx context.Context, in ThemeNarrativeInput) (*digests.Narrative, string, error) {
	return f.narrative(in.ThemeName)
}

func testSpec() digest.Spec {
	var s digest.Spec
	s.Spec = "digest"
	s.Version = 1
	s.Terms.GapYears = 2
	s.Terms.OpenTailYears = 1
	s.Periods.Granularity = "quarter"
	s.Topics.MaxShow = 3
	s.Topics.TopTags = 5
	s.Pacing.Mode = "fixed"
	return s
}

func seedOrder(officialID uuid.UUID, name string, signedAt time.Time, themeIDs []uuid.UUID) *types.Order {
	return &types.Order{
		ID:           uuid.New(),
		ExternalID:   "EO-" + uuid.NewString()[:8],
		Title:        "Order " + name,
		OfficialID:   officialID,
		OfficialName: name,
		SignedAt:     signedAt,
		ThemeTags:    orders.EncodeIDs(themeIDs),
		HelpedTags:   orders.EncodeIDs(nil),
		HurtTags:     orders.EncodeIDs(nil),
	}
}

func newRefreshFixture(t *testing.T, snap *registry.Snapshot, rows []*types.Order, narrative NarrativeService) (DigestRefreshService, string) {
	t.Helper()
	root := t.TempDir()
	store, err := digeststore.NewFSStore(root, testLog(t))
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	svc := NewDigestRefreshService(testLog(t), &fakeRegistry{snap: snap}, &fakeOrderRepo{rows: rows}, store, narrative, nil, testSpec())
	return svc, root
}

func decodeDoc(t *testing.T, root, kind string) merge.Collection {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(root, "digests", kind+".json"))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	var c merge.Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return c
}

func TestRefreshTermsPersistsAndIsIdempotent(t *testing.T) {
	officialID := uuid.New()
	official := registry.Official{ID: officialID, Slug: "jane-doe", FullName: "Jane Doe"}
	themeID := uuid.New()
	tag := registry.Tag{ID: themeID, Slug: "energy", Kind: string(types.TagKindTheme), DisplayName: "Energy"}
	snap := registry.NewSnapshot(time.Now(), []registry.Official{official}, nil, []registry.Tag{tag})

	rows := []*types.Order{
		seedOrder(officialID, "Jane Doe", time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), []uuid.UUID{themeID}),
		seedOrder(officialID, "Jane Doe", time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC), []uuid.UUID{themeID}),
	}

	svc, root := newRefreshFixture(t, snap, rows, &fakeNarrative{})

	res, err := svc.Refresh(context.Background(), RefreshInput{Kind: digests.KindTerms})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Outcome.Generated != 1 || !res.Changed {
		t.Fatalf("expected one generated entry, got %+v", res)
	}

	doc := decodeDoc(t, root, digests.KindTerms)
	if len(doc.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(doc.Entries))
	}
	var entry digests.TermEntry
	if err := json.Unmarshal(doc.Entries[0], &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.OfficialSlug != "jane-doe" || entry.StartYear != 2021 || entry.OrderCount != 2 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Narrative == nil || entry.Model != "fake-model" {
		t.Fatalf("expected narrative and model recorded, got %+v", entry)
	}
	if len(entry.TopThemes) != 1 || entry.TopThemes[0].Slug != "energy" || entry.TopThemes[0].Count != 2 {
		t.Fatalf("unexpected theme stats %+v", entry.TopThemes)
	}

	before, err := os.ReadFile(filepath.Join(root, "digests", digests.KindTerms+".json"))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}

	res, err = svc.Refresh(context.Background(), RefreshInput{Kind: digests.KindTerms})
	if err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if res.Changed || res.Outcome.Skipped != 1 || res.Outcome.Generated != 0 {
		t.Fatalf("second run should be a no-op, got %+v", res)
	}

	after, err := os.ReadFile(filepath.Join(root, "digests", digests.KindTerms+".json"))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("no-op run rewrote the document")
	}
}

func TestRefreshTermsScope(t *testing.T) {
	o1 := registry.Official{ID: uuid.New(), Slug: "jane-doe", FullName: "Jane Doe"}
	o2 := registry.Official{ID: uuid.New(), Slug: "john-roe", FullName: "John Roe"}
	snap := registry.NewSnapshot(time.Now(), []registry.Official{o1, o2}, nil, nil)

	rows := []*types.Order{
		seedOrder(o1.ID, "Jane Doe", time.Date(2018, 5, 1, 0, 0, 0, 0, time.UTC), nil),
		seedOrder(o2.ID, "John Roe", time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), nil),
	}

	svc, root := newRefreshFixture(t, snap, rows, &fakeNarrative{})

	res, err := svc.Refresh(context.Background(), RefreshInput{
		Kind:  digests.KindTerms,
		Scope: merge.Scope{OfficialID: &o1.ID},
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Candidates != 1 || res.Outcome.Generated != 1 {
		t.Fatalf("scope should limit to one candidate, got %+v", res)
	}

	doc := decodeDoc(t, root, digests.KindTerms)
	if len(doc.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(doc.Entries))
	}
	var entry digests.TermEntry
	if err := json.Unmarshal(doc.Entries[0], &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.OfficialID != o1.ID {
		t.Fatalf("wrong official in scope run: %+v", entry)
	}
}

func TestRefreshFailedKeyDoesNotPoisonRun(t *testing.T) {
	o1 := registry.Official{ID: uuid.New(), Slug: "jane-doe", FullName: "Jane Doe"}
	o2 := registry.Official{ID: uuid.New(), Slug: "john-roe", FullName: "John Roe"}
	snap := registry.NewSnapshot(time.Now(), []registry.Official{o1, o2}, nil, nil)

	rows := []*types.Order{
		seedOrder(o1.ID, "Jane Doe", time.Date(2018, 5, 1, 0, 0, 0, 0, time.UTC), nil),
		seedOrder(o2.ID, "John Roe", time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), nil),
	}

	svc, root := newRefreshFixture(t, snap, rows, &fakeNarrative{failFor: "John Roe"})

	res, err := svc.Refresh(context.Background(), RefreshInput{Kind: digests.KindTerms})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Outcome.Generated != 1 || res.Outcome.Failed != 1 {
		t.Fatalf("expected 1 generated and 1 failed, got %+v", res.Outcome)
	}

	doc := decodeDoc(t, root, digests.KindTerms)
	if len(doc.Entries) != 1 {
		t.Fatalf("failed key must not produce an entry, got %d entries", len(doc.Entries))
	}
}

func TestRefreshDryRunWritesNothing(t *testing.T) {
	o1 := registry.Official{ID: uuid.New(), Slug: "jane-doe", FullName: "Jane Doe"}
	snap := registry.NewSnapshot(time.Now(), []registry.Official{o1}, nil, nil)
	rows := []*types.Order{
		seedOrder(o1.ID, "Jane Doe", time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), nil),
	}

	narrative := &fakeNarrative{}
	svc, root := newRefreshFixture(t, snap, rows, narrative)

	res, err := svc.Refresh(context.Background(), RefreshInput{Kind: digests.KindTerms, DryRun: true})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Outcome.Generated != 1 || res.Changed {
		t.Fatalf("dry run should report one would-generate, got %+v", res)
	}
	if narrative.calls != 0 {
		t.Fatalf("dry run must not call the narrative model, got %d calls", narrative.calls)
	}
	if _, err := os.Stat(filepath.Join(root, "digests", digests.KindTerms+".json")); !os.IsNotExist(err) {
		t.Fatal("dry run must not write the document")
	}
}

func TestRefreshPeriods(t *testing.T) {
	o1 := registry.Official{ID: uuid.New(), Slug: "jane-doe", FullName: "Jane Doe"}
	o2 := registry.Official{ID: uuid.New(), Slug: "john-roe", FullName: "John Roe"}
	snap := registry.NewSnapshot(time.Now(), []registry.Official{o1, o2}, nil, nil)

	rows := []*types.Order{
		seedOrder(o1.ID, "Jane Doe", time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC), nil),
		seedOrder(o2.ID, "John Roe", time.Date(2021, 2, 10, 0, 0, 0, 0, time.UTC), nil),
		seedOrder(o2.ID, "John Roe", time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), nil),
	}

	svc, root := newRefreshFixture(t, snap, rows, &fakeNarrative{})

	res, err := svc.Refresh(context.Background(), RefreshInput{Kind: digests.KindPeriods})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Outcome.Generated != 2 {
		t.Fatalf("expected 2 period entries, got %+v", res.Outcome)
	}

	doc := decodeDoc(t, root, digests.KindPeriods)
	var first digests.PeriodEntry
	if err := json.Unmarshal(doc.Entries[0], &first); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	// Canonical order is most recent period first.
	if first.Period != "2021-Q2" {
		t.Fatalf("expected 2021-Q2 first, got %q", first.Period)
	}
	var q1 digests.PeriodEntry
	if err := json.Unmarshal(doc.Entries[1], &q1); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if !q1.Transition || len(q1.Officials) != 2 || q1.Officials[0].OfficialName != "Jane Doe" {
		t.Fatalf("expected Q1 transition with outgoing official first, got %+v", q1)
	}
}

func TestRefreshThemes(t *testing.T) {
	o1 := registry.Official{ID: uuid.New(), Slug: "jane-doe", FullName: "Jane Doe"}
	energy := registry.Tag{ID: uuid.New(), Slug: "energy", Kind: string(types.TagKindTheme), DisplayName: "Energy"}
	trade := registry.Tag{ID: uuid.New(), Slug: "trade", Kind: string(types.TagKindTheme), DisplayName: "Trade"}
	snap := registry.NewSnapshot(time.Now(), []registry.Official{o1}, nil, []registry.Tag{energy, trade})

	rows := []*types.Order{
		seedOrder(o1.ID, "Jane Doe", time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC), []uuid.UUID{energy.ID, trade.ID}),
		seedOrder(o1.ID, "Jane Doe", time.Date(2022, 3, 5, 0, 0, 0, 0, time.UTC), []uuid.UUID{energy.ID}),
		seedOrder(o1.ID, "Jane Doe", time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC), []uuid.UUID{energy.ID}),
	}

	svc, root := newRefreshFixture(t, snap, rows, &fakeNarrative{})

	res, err := svc.Refresh(context.Background(), RefreshInput{Kind: digests.KindThemes})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	// energy 2022, trade 2022, energy 2023.
	if res.Outcome.Generated != 3 {
		t.Fatalf("expected 3 theme entries, got %+v", res.Outcome)
	}

	doc := decodeDoc(t, root, digests.KindThemes)
	var first digests.ThemeEntry
	if err := json.Unmarshal(doc.Entries[0], &first); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	// Canonical order is count descending.
	if first.Slug != "energy" || first.Year != 2022 || first.OrderCount != 2 {
		t.Fatalf("expected energy 2022 with 2 orders first, got %+v", first)
	}
}
