package app

import (
	"github.com/yungbote/policylens-backend/internal/platform/envutil"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/utils"
)

type Config struct {
	Port        string
	MetricsAddr string

	RunServer bool
	RunWorker bool

	// DigestStoreMode selects where collection documents live: "gcs" or
	// "fs". The fs mode is meant for development and the backfill CLI.
	DigestStoreMode string
	DigestStorePath string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:            utils.GetEnv("PORT", "8080", log),
		MetricsAddr:     utils.GetEnv("METRICS_ADDR", "", log),
		RunServer:       envutil.Bool("RUN_SERVER", true),
		RunWorker:       envutil.Bool("RUN_WORKER", true),
		DigestStoreMode: utils.GetEnv("DIGEST_STORE_MODE", "fs", log),
		DigestStorePath: utils.GetEnv("DIGEST_STORE_PATH", "data", log),
	}
}
