package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/policylens-backend/internal/data/db"
	"github.com/yungbote/policylens-backend/internal/jobs/worker"
	"github.com/yungbote/policylens-backend/internal/observability"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Router   *gin.Engine
	Worker   *worker.Worker
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "dev"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "policylens-backend",
		Environment: os.Getenv("APP_ENV"),
	})

	dbService, err := db.NewService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbService.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(log, clients, reposet)
	if err != nil {
		log.Sync()
		return nil, err
	}

	jobWorker, err := wireWorker(theDB, log, clients, reposet, serviceset)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, reposet)
	mw := wireMiddleware(log, serviceset)
	router := wireRouter(log, metrics, handlerset, mw)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Router:       router,
		Worker:       jobWorker,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background pieces: the job worker loops, the metrics
// server and collectors, and the Redis event forwarder. The HTTP listener
// itself is started by Run.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Cfg.RunWorker && a.Worker != nil {
		a.Worker.Start(ctx)
	}

	if a.Metrics != nil {
		if a.Cfg.MetricsAddr != "" {
			a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		}
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB)
		if addr := os.Getenv("REDIS_ADDR"); addr != "" {
			a.Metrics.StartRedisCollector(ctx, a.Log, addr)
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Clients.JobBus != nil {
		_ = a.Clients.JobBus.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
