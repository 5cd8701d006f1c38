package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/policylens-backend/internal/data/repos"
	"github.com/yungbote/policylens-backend/internal/domain/registry"
	"github.com/yungbote/policylens-backend/internal/modules/digest/terms"
	"github.com/yungbote/policylens-backend/internal/observability"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
	"github.com/yungbote/policylens-backend/internal/platform/envutil"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

const registrySnapshotCacheKey = "policylens:registry:snapshot"

// RegistryService builds the immutable registry snapshot a run works against.
// The load fails closed: overlapping service intervals abort the snapshot, so
// nothing downstream ever computes terms from contradictory registry data.
type RegistryService interface {
	Snapshot(ctx context.Context) (*registry.Snapshot, error)
	Invalidate(ctx context.Context)
}

type registryService struct {
	log       *logger.Logger
	officials repos.OfficialRepo
	intervals repos.ServiceIntervalRepo
	tags      repos.TagRepo
	rdb       *redis.Client
	cacheTTL  time.Duration
}

// NewRegistryService wires the snapshot loader. rdb may be nil; the Redis
// snapshot cache is an optimization, not a requirement.
func NewRegistryService(
	baseLog *logger.Logger,
	officials repos.OfficialRepo,
	intervals repos.ServiceIntervalRepo,
	tags repos.TagRepo,
	rdb *redis.Client,
) RegistryService {
	return &registryService{
		log:       baseLog.With("service", "RegistryService"),
		officials: officials,
		intervals: intervals,
		tags:      tags,
		rdb:       rdb,
		cacheTTL:  time.Duration(envutil.Int("REGISTRY_CACHE_TTL_SECONDS", 60)) * time.Second,
	}
}

func (s *registryService) Snapshot(ctx context.Context) (*registry.Snapshot, error) {
	if snap := s.cachedSnapshot(ctx); snap != nil {
		return snap, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	officials, err := s.officials.GetAll(dbc)
	if err != nil {
		return nil, fmt.Errorf("load officials: %w", err)
	}
	intervals, err := s.intervals.GetAll(dbc)
	if err != nil {
		return nil, fmt.Errorf("load service intervals: %w", err)
	}
	tags, err := s.tags.GetAll(dbc)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}

	// Validate interval disjointness before anything can consume the snapshot.
	ivs := make([]terms.Interval, 0, len(intervals))
	for _, iv := range intervals {
		ivs = append(ivs, terms.Interval{OfficialID: iv.OfficialID, Start: iv.StartDate, End: iv.EndDate})
	}
	if _, err := terms.FromIntervals(ivs); err != nil {
		return nil, fmt.Errorf("registry snapshot rejected: %w", err)
	}

	os := make([]registry.Official, 0, len(officials))
	for _, o := range officials {
		os = append(os, *o)
	}
	is := make([]registry.ServiceInterval, 0, len(intervals))
	for _, iv := range intervals {
		is = append(is, *iv)
	}
	ts := make([]registry.Tag, 0, len(tags))
	for _, t := range tags {
		ts = append(ts, *t)
	}

	snap := registry.NewSnapshot(time.Now().UTC(), os, is, ts)
	s.cacheSnapshot(ctx, snap)
	s.log.Debug("Registry snapshot loaded",
		"officials", len(os), "intervals", len(is), "tags", len(ts))
	return snap, nil
}

func (s *registryService) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, registrySnapshotCacheKey).Err(); err != nil {
		s.log.Warn("Failed to invalidate registry snapshot cache", "error", err)
	}
}

func (s *registryService) cachedSnapshot(ctx context.Context) *registry.Snapshot {
	if s.rdb == nil || s.cacheTTL <= 0 {
		return nil
	}
	raw, err := s.rdb.Get(ctx, registrySnapshotCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("Registry snapshot cache read failed", "error", err)
		}
		if m := observability.Current(); m != nil {
			m.IncCacheOp("registry_get", "miss")
		}
		return nil
	}
	var doc registry.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Warn("Malformed cached registry snapshot; reloading", "error", err)
		return nil
	}
	if m := observability.Current(); m != nil {
		m.IncCacheOp("registry_get", "hit")
	}
	return registry.FromDocument(doc)
}

func (s *registryService) cacheSnapshot(ctx context.Context, snap *registry.Snapshot) {
	if s.rdb == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(snap.ToDocument())
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, registrySnapshotCacheKey, raw, s.cacheTTL).Err(); err != nil {
		s.log.Warn("Registry snapshot cache write failed", "error", err)
	}
}
