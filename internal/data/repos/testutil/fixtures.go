package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/domain/orders"
)

func SeedOfficial(tb testing.TB, ctx context.Context, tx *gorm.DB, slug string) *types.Official {
	tb.Helper()
	o := &types.Official{
		ID:       uuid.New(),
		Slug:     slug,
		FullName: "Official " + slug,
		Role:     "governor",
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed official: %v", err)
	}
	return o
}

func SeedServiceInterval(tb testing.TB, ctx context.Context, tx *gorm.DB, officialID uuid.UUID, start time.Time, end *time.Time) *types.ServiceInterval {
	tb.Helper()
	si := &types.ServiceInterval{
		ID:         uuid.New(),
		OfficialID: officialID,
		StartDate:  start,
		EndDate:    end,
		Source:     "test",
	}
	if err := tx.WithContext(ctx).Create(si).Error; err != nil {
		tb.Fatalf("seed service interval: %v", err)
	}
	return si
}

func SeedTag(tb testing.TB, ctx context.Context, tx *gorm.DB, kind, slug string) *types.Tag {
	tb.Helper()
	tag := &types.Tag{
		ID:          uuid.New(),
		Slug:        slug,
		Kind:        kind,
		DisplayName: slug,
	}
	if err := tx.WithContext(ctx).Create(tag).Error; err != nil {
		tb.Fatalf("seed tag: %v", err)
	}
	return tag
}

func SeedOrder(tb testing.TB, ctx context.Context, tx *gorm.DB, officialID uuid.UUID, signedAt time.Time, themeIDs []uuid.UUID) *types.Order {
	tb.Helper()
	o := &types.Order{
		ID:           uuid.New(),
		ExternalID:   fmt.Sprintf("EO-%s", uuid.NewString()[:8]),
		Title:        "order",
		OfficialID:   officialID,
		OfficialName: "Official",
		SignedAt:     signedAt,
		ThemeTags:    orders.EncodeIDs(themeIDs),
		HelpedTags:   datatypes.JSON([]byte("[]")),
		HurtTags:     datatypes.JSON([]byte("[]")),
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed order: %v", err)
	}
	return o
}

func SeedJobRun(tb testing.TB, ctx context.Context, tx *gorm.DB, jobType, status string, createdAt time.Time) *types.JobRun {
	tb.Helper()
	j := &types.JobRun{
		ID:        uuid.New(),
		JobType:   jobType,
		Status:    status,
		Stage:     status,
		Payload:   datatypes.JSON([]byte("{}")),
		Result:    datatypes.JSON([]byte("{}")),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed job run: %v", err)
	}
	return j
}
