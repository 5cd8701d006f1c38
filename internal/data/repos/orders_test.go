package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/policylens-backend/internal/data/repos/testutil"
	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
)

func TestOrderRepoUpsertByExternalID(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewOrderRepo(db, testutil.Logger(t))
	official := testutil.SeedOfficial(t, dbc.Ctx, tx, "signer")

	signed := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	row := &types.Order{
		ID:           uuid.New(),
		ExternalID:   "2025-01234",
		Title:        "Original title",
		OfficialID:   official.ID,
		OfficialName: official.FullName,
		SignedAt:     signed,
		ThemeTags:    datatypes.JSON([]byte("[]")),
		HelpedTags:   datatypes.JSON([]byte("[]")),
		HurtTags:     datatypes.JSON([]byte("[]")),
	}
	if _, err := repo.UpsertByExternalID(dbc, []*types.Order{row}); err != nil {
		t.Fatalf("UpsertByExternalID insert: %v", err)
	}

	update := &types.Order{
		ID:           uuid.New(),
		ExternalID:   "2025-01234",
		Title:        "Amended title",
		OfficialID:   official.ID,
		OfficialName: official.FullName,
		SignedAt:     signed,
		ThemeTags:    datatypes.JSON([]byte("[]")),
		HelpedTags:   datatypes.JSON([]byte("[]")),
		HurtTags:     datatypes.JSON([]byte("[]")),
	}
	if _, err := repo.UpsertByExternalID(dbc, []*types.Order{update}); err != nil {
		t.Fatalf("UpsertByExternalID update: %v", err)
	}

	rows, err := repo.GetByExternalIDs(dbc, []string{"2025-01234"})
	if err != nil {
		t.Fatalf("GetByExternalIDs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("upsert duplicated the row: got %d", len(rows))
	}
	if rows[0].Title != "Amended title" {
		t.Fatalf("upsert did not refresh title: %q", rows[0].Title)
	}
	if rows[0].ID != row.ID {
		t.Fatalf("upsert must keep the existing row id")
	}
}

func TestOrderRepoQueries(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewOrderRepo(db, testutil.Logger(t))
	official := testutil.SeedOfficial(t, dbc.Ctx, tx, "query-signer")
	other := testutil.SeedOfficial(t, dbc.Ctx, tx, "other-signer")

	early := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	testutil.SeedOrder(t, dbc.Ctx, tx, official.ID, mid, nil)
	testutil.SeedOrder(t, dbc.Ctx, tx, official.ID, early, nil)
	testutil.SeedOrder(t, dbc.Ctx, tx, other.ID, late, nil)

	all, err := repo.GetAllSortedBySignedAt(dbc)
	if err != nil {
		t.Fatalf("GetAllSortedBySignedAt: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].SignedAt.Before(all[i-1].SignedAt) {
			t.Fatalf("orders not sorted ascending by signed_at")
		}
	}

	mine, err := repo.GetByOfficialID(dbc, official.ID)
	if err != nil || len(mine) != 2 {
		t.Fatalf("GetByOfficialID: err=%v len=%d", err, len(mine))
	}

	ranged, err := repo.GetBySignedRange(dbc,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || len(ranged) != 2 {
		t.Fatalf("GetBySignedRange: err=%v len=%d", err, len(ranged))
	}

	latest, err := repo.LatestSignedAt(dbc)
	if err != nil {
		t.Fatalf("LatestSignedAt: %v", err)
	}
	if latest == nil || !latest.Equal(late) {
		t.Fatalf("LatestSignedAt: got %v, want %v", latest, late)
	}

	count, err := repo.Count(dbc)
	if err != nil || count != 3 {
		t.Fatalf("Count: err=%v count=%d", err, count)
	}
}
