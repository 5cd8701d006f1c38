package orders_sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/domain/registry"
	jobrt "github.com/yungbote/policylens-backend/internal/jobs/runtime"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
	"github.com/yungbote/policylens-backend/internal/platform/fedreg"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/services"
)

type fakeFeed struct {
	docs  []fedreg.Document
	since time.Time
}

func (f *fakeFeed) FetchSince(ctx context.Context, since time.Time) ([]fedreg.Document, error) {
	f.since = since
	return f.docs, nil
}

type fakeOrderRepo struct {
	latest   *time.Time
	upserted []*types.Order
}

func (f *fakeOrderRepo) Create(dbc dbctx.Context, rows []*types.Order) ([]*types.Order, error) {
	return rows, nil
}

func (f *fakeOrderRepo) UpsertByExternalID(dbc dbctx.Context, rows []*types.Order) (int64, error) {
	f.upserted = rows
	return int64(len(rows)), nil
}

func (f *fakeOrderRepo) GetAllSortedBySignedAt(dbc dbctx.Context) ([]*types.Order, error) {
	return nil, nil
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

func (f *fakeOrderRepo) LatestSignedAt(dbc dbctx.Context) (*time.Time, error) {
	return f.latest, nil
}

func (f *fakeOrderRepo) Count(dbc dbctx.Context) (int64, error) { return 0, nil }

type fakeOfficialRepo struct {
	created []*types.Official
}

func (f *fakeOfficialRepo) Create(dbc dbctx.Context, rows []*types.Official) ([]*types.Official, error) {
	return rows, nil
}

func (f *fakeOfficialRepo) GetAll(dbc dbctx.Context) ([]*types.Official, error) { return nil, nil }

func (f *fakeOfficialRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Official, error) {
	return nil, nil
}

func (f *fakeOfficialRepo) GetBySlug(dbc dbctx.Context, slug string) (*types.Official, error) {
	return nil, nil
}

func (f *fakeOfficialRepo) UpsertBySlug(dbc dbctx.Context, row *types.Official) error {
	f.created = append(f.created, row)
	return nil
}

func (f *fakeOfficialRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

type fakeRegistry struct {
	snaps []*registry.Snapshot
	calls int
}

func (f *fakeRegistry) Snapshot(ctx context.Context) (*registry.Snapshot, error) {
	i := f.calls
	if i >= len(f.snaps) {
		i = len(f.snaps) - 1
	}
	f.calls++
	return f.snaps[i], nil
}

func (f *fakeRegistry) Invalidate(ctx context.Context) {}

func testLog(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestRunSyncsFeedDocuments(t *testing.T) {
	official := registry.Official{ID: uuid.New(), Slug: "jane-doe", FullName: "Jane Doe"}
	energy := registry.Tag{ID: uuid.New(), Slug: "energy", Kind: string(types.TagKindTheme), DisplayName: "Energy"}
	farmers := registry.Tag{ID: uuid.New(), Slug: "farmers", Kind: string(types.TagKindPopulation), DisplayName: "Farmers"}
	snap := registry.NewSnapshot(time.Now(), []registry.Official{official}, nil, []registry.Tag{energy, farmers})

	feed := &fakeFeed{docs: []fedreg.Document{
		{
			DocumentNumber: "2024-00111",
			Title:          "Strengthening Energy Supply for Farmers",
			Abstract:       "Support for rural producers.",
			SigningDate:    time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
			OfficialName:   "Jane Doe",
			HTMLURL:        "https://example.org/2024-00111",
			Raw:            json.RawMessage(`{"document_number":"2024-00111"}`),
		},
	}}
	ordersRepo := &fakeOrderRepo{}
	officialsRepo := &fakeOfficialRepo{}

	p := New(testLog(t), ordersRepo, officialsRepo, &fakeRegistry{snaps: []*registry.Snapshot{snap}}, feed)
	job := &types.JobRun{ID: uuid.New(), JobType: p.Type(), Status: "running"}
	jc := jobrt.NewContext(context.Background(), nil, job, nil, services.NopJobNotifier{})

	if err := p.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != "succeeded" {
		t.Fatalf("expected success, got status %q error %q", job.Status, job.Error)
	}
	if len(ordersRepo.upserted) != 1 {
		t.Fatalf("expected 1 upserted order, got %d", len(ordersRepo.upserted))
	}

	row := ordersRepo.upserted[0]
	if row.ExternalID != "2024-00111" || row.OfficialID != official.ID {
		t.Fatalf("unexpected row %+v", row)
	}
	if got := row.Themes(); len(got) != 1 || got[0] != energy.ID {
		t.Fatalf("expected energy theme tag, got %v", got)
	}
	if got := row.PopulationsHelped(); len(got) != 1 || got[0] != farmers.ID {
		t.Fatalf("expected farmers population tag, got %v", got)
	}
	if len(officialsRepo.created) != 0 {
		t.Fatalf("known official must not be re-created, got %d", len(officialsRepo.created))
	}
}

func TestRunRegistersUnknownOfficial(t *testing.T) {
	empty := registry.NewSnapshot(time.Now(), nil, nil, nil)

	feed := &fakeFeed{docs: []fedreg.Document{
		{
			DocumentNumber: "2025-00001",
			Title:          "An Order",
			SigningDate:    time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC),
			OfficialName:   "John Roe",
		},
	}}
	ordersRepo := &fakeOrderRepo{}
	officialsRepo := &fakeOfficialRepo{}

	// Second snapshot load, after the official is created, still resolves the
	// name through the byName map built during resolution.
	p := New(testLog(t), ordersRepo, officialsRepo, &fakeRegistry{snaps: []*registry.Snapshot{empty, empty}}, feed)
	job := &types.JobRun{ID: uuid.New(), JobType: p.Type(), Status: "running"}
	jc := jobrt.NewContext(context.Background(), nil, job, nil, services.NopJobNotifier{})

	if err := p.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != "succeeded" {
		t.Fatalf("expected success, got status %q error %q", job.Status, job.Error)
	}
	if len(officialsRepo.created) != 1 || officialsRepo.created[0].Slug != "john-roe" {
		t.Fatalf("expected john-roe created, got %+v", officialsRepo.created)
	}
	if len(ordersRepo.upserted) != 1 || ordersRepo.upserted[0].OfficialID != officialsRepo.created[0].ID {
		t.Fatalf("order must reference the created official")
	}
}

func TestRunUsesOverlapCursor(t *testing.T) {
	latest := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	feed := &fakeFeed{}
	ordersRepo := &fakeOrderRepo{latest: &latest}

	snap := registry.NewSnapshot(time.Now(), nil, nil, nil)
	p := New(testLog(t), ordersRepo, &fakeOfficialRepo{}, &fakeRegistry{snaps: []*registry.Snapshot{snap}}, feed)
	job := &types.JobRun{ID: uuid.New(), JobType: p.Type(), Status: "running"}
	jc := jobrt.NewContext(context.Background(), nil, job, nil, services.NopJobNotifier{})

	if err := p.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := latest.Add(-syncOverlap)
	if !feed.since.Equal(want) {
		t.Fatalf("expected cursor %v, got %v", want, feed.since)
	}
	if job.Status != "succeeded" {
		t.Fatalf("empty feed should still succeed, got %q", job.Status)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Jane Doe":        "jane-doe",
		"  John Q. Roe  ": "john-q--roe",
		"O'Neill":         "oneill",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Fatalf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
