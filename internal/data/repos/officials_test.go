package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/policylens-backend/internal/data/repos/testutil"
	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
)

func TestOfficialRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewOfficialRepo(db, testutil.Logger(t))

	a := testutil.SeedOfficial(t, dbc.Ctx, tx, "jane-doe")
	b := testutil.SeedOfficial(t, dbc.Ctx, tx, "alex-roe")

	got, err := repo.GetBySlug(dbc, "jane-doe")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Fatalf("GetBySlug: wrong row: %+v", got)
	}

	missing, err := repo.GetBySlug(dbc, "nobody")
	if err != nil {
		t.Fatalf("GetBySlug missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("GetBySlug missing: expected nil, got %+v", missing)
	}

	rows, err := repo.GetByIDs(dbc, []uuid.UUID{a.ID, b.ID})
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	if err := repo.UpsertBySlug(dbc, &types.Official{
		ID:       uuid.New(),
		Slug:     "jane-doe",
		FullName: "Jane Q. Doe",
		Role:     "governor",
	}); err != nil {
		t.Fatalf("UpsertBySlug: %v", err)
	}
	got, err = repo.GetBySlug(dbc, "jane-doe")
	if err != nil {
		t.Fatalf("GetBySlug after upsert: %v", err)
	}
	if got.FullName != "Jane Q. Doe" {
		t.Fatalf("UpsertBySlug did not update full_name: %q", got.FullName)
	}
	if got.ID != a.ID {
		t.Fatalf("UpsertBySlug must keep the existing row id")
	}
}

func TestServiceIntervalRepoReplace(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewServiceIntervalRepo(db, testutil.Logger(t))
	official := testutil.SeedOfficial(t, dbc.Ctx, tx, "term-holder")

	start1 := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	end1 := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	testutil.SeedServiceInterval(t, dbc.Ctx, tx, official.ID, start1, &end1)

	start2 := time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC)
	replacement := []*types.ServiceInterval{{
		ID:        uuid.New(),
		StartDate: start2,
		Source:    "registry",
	}}
	if err := repo.ReplaceForOfficial(dbc, official.ID, replacement); err != nil {
		t.Fatalf("ReplaceForOfficial: %v", err)
	}

	rows, err := repo.GetByOfficialIDs(dbc, []uuid.UUID{official.ID})
	if err != nil {
		t.Fatalf("GetByOfficialIDs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 interval after replace, got %d", len(rows))
	}
	if !rows[0].StartDate.Equal(start2) {
		t.Fatalf("wrong interval survived: %+v", rows[0])
	}
	if rows[0].OfficialID != official.ID {
		t.Fatalf("replace must stamp official_id")
	}
}
