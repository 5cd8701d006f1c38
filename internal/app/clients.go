package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/policylens-backend/internal/data/digeststore"
	"github.com/yungbote/policylens-backend/internal/platform/fedreg"
	"github.com/yungbote/policylens-backend/internal/platform/gcp"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/platform/openai"
	"github.com/yungbote/policylens-backend/internal/platform/redisbus"
)

type Clients struct {
	Redis  *redis.Client
	JobBus redisbus.Bus
	OpenAI openai.Client
	Bucket gcp.BucketService
	Fedreg fedreg.Client

	DigestStore digeststore.Store
}

// wireClients builds the external dependencies. Redis, OpenAI, and GCS are
// all optional: without Redis the caches and the event bus degrade to
// pass-through, without OpenAI digests carry statistics but no narratives,
// and without GCS there are no share cards and the digest store must be fs.
func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:        addr,
			DialTimeout: 5 * time.Second,
		})
		bus, err := redisbus.NewRedisBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis job bus: %w", err)
		}
		c.JobBus = bus
	} else {
		log.Warn("REDIS_ADDR not set; running without cache or job event bus")
		c.JobBus = redisbus.NopBus{}
	}

	if strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != "" {
		ai, err := openai.NewClient(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		c.OpenAI = ai
	} else {
		log.Warn("OPENAI_API_KEY not set; digest narratives disabled")
	}

	if strings.TrimSpace(os.Getenv("DIGEST_GCS_BUCKET_NAME")) != "" {
		bucket, err := gcp.NewBucketService(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init bucket client: %w", err)
		}
		c.Bucket = bucket
	} else {
		log.Warn("DIGEST_GCS_BUCKET_NAME not set; object storage disabled")
	}

	c.Fedreg = fedreg.NewClient(log)

	store, err := wireDigestStore(log, cfg, c.Bucket)
	if err != nil {
		return Clients{}, err
	}
	c.DigestStore = store

	return c, nil
}

func wireDigestStore(log *logger.Logger, cfg Config, bucket gcp.BucketService) (digeststore.Store, error) {
	switch cfg.DigestStoreMode {
	case "gcs":
		if bucket == nil {
			return nil, fmt.Errorf("DIGEST_STORE_MODE=gcs requires GCS to be configured")
		}
		return digeststore.NewGCSStore(bucket, log), nil
	case "fs":
		return digeststore.NewFSStore(cfg.DigestStorePath, log)
	default:
		return nil, fmt.Errorf("unknown DIGEST_STORE_MODE %q", cfg.DigestStoreMode)
	}
}
