package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/policylens-backend/internal/data/digeststore"
	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/observability"
	"github.com/yungbote/policylens-backend/internal/platform/envutil"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

// DigestQueryService is the read path for digest documents: a Redis
// read-through cache in front of the digest store. A nil document means no
// collection has been persisted for that kind yet.
type DigestQueryService interface {
	Get(ctx context.Context, kind string) ([]byte, error)
	Invalidate(ctx context.Context, kind string)
}

type digestQueryService struct {
	log      *logger.Logger
	store    digeststore.Store
	rdb      *redis.Client
	cacheTTL time.Duration
}

// NewDigestQueryService wires the read path. rdb may be nil for cacheless
// deployments (CLI, tests).
func NewDigestQueryService(baseLog *logger.Logger, store digeststore.Store, rdb *redis.Client) DigestQueryService {
	return &digestQueryService{
		log:      baseLog.With("service", "DigestQueryService"),
		store:    store,
		rdb:      rdb,
		cacheTTL: time.Duration(envutil.Int("DIGEST_CACHE_TTL_SECONDS", 300)) * time.Second,
	}
}

func cacheKeyForKind(kind string) string { return "policylens:digest:" + kind }

func (s *digestQueryService) Get(ctx context.Context, kind string) ([]byte, error) {
	if !digests.KnownKind(kind) {
		return nil, fmt.Errorf("unknown digest kind %q", kind)
	}

	if doc := s.cachedDocument(ctx, kind); doc != nil {
		return doc, nil
	}

	doc, err := s.store.Get(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load digest document: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	s.cacheDocument(ctx, kind, doc)
	return doc, nil
}

func (s *digestQueryService) Invalidate(ctx context.Context, kind string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, cacheKeyForKind(kind)).Err(); err != nil {
		s.log.Warn("Failed to invalidate digest cache", "kind", kind, "error", err)
	}
	if m := observability.Current(); m != nil {
		m.IncCacheOp("digest_invalidate", "ok")
	}
}

func (s *digestQueryService) cachedDocument(ctx context.Context, kind string) []byte {
	if s.rdb == nil || s.cacheTTL <= 0 {
		return nil
	}
	doc, err := s.rdb.Get(ctx, cacheKeyForKind(kind)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("Digest cache read failed", "kind", kind, "error", err)
		}
		if m := observability.Current(); m != nil {
			m.IncCacheOp("digest_get", "miss")
		}
		return nil
	}
	if m := observability.Current(); m != nil {
		m.IncCacheOp("digest_get", "hit")
	}
	return doc
}

func (s *digestQueryService) cacheDocument(ctx context.Context, kind string, doc []byte) {
	if s.rdb == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.rdb.Set(ctx, cacheKeyForKind(kind), doc, s.cacheTTL).Err(); err != nil {
		s.log.Warn("Digest cache write failed", "kind", kind, "error", err)
	}
}
