package analyzer

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/canopy-network/nodedist/pkg/config"
	"github.com/canopy-network/nodedist/pkg/db"
	"github.com/canopy-network/nodedist/pkg/logging"
	"github.com/canopy-network/nodedist/pkg/lookup"
	"github.com/canopy-network/nodedist/pkg/redis"
	"github.com/canopy-network/nodedist/pkg/registry"
	"github.com/canopy-network/nodedist/pkg/report"
	"github.com/canopy-network/nodedist/pkg/state"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// App runs chain analyses, once from the command line or on a cron schedule.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Providers *registry.ProviderRegistry
	Countries *registry.CountryRegistry
	ASN       lookup.ASNLookup
	Geo       lookup.GeoLookup

	State  state.Store
	Writer *report.Writer
	// Snapshots and Redis are nil when disabled.
	Snapshots db.SnapshotStore
	Redis     *redis.Client

	// Out receives the completion summaries.
	Out io.Writer

	// Cron is the scheduler that triggers runs at Config.Schedule.Cron.
	Cron   *cron.Cron
	Server *http.Server

	now     func() time.Time
	ready   atomic.Bool
	closers []func()
}

// Initialize loads the configuration and wires every collaborator of a run.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New("analyzer")
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Unable to load configuration", zap.Error(err))
	}

	providers, err := registry.LoadProviderRegistry(cfg.ProviderConfigPath())
	if err != nil {
		logger.Fatal("Unable to load provider registry", zap.Error(err))
	}
	countries, err := registry.LoadCountryRegistry(cfg.CountryConfigPath())
	if err != nil {
		logger.Fatal("Unable to load country registry", zap.Error(err))
	}
	logger.Info("Registries loaded",
		zap.Int("asns", providers.Len()),
		zap.Int("countries", countries.Len()))

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Providers: providers,
		Countries: countries,
		Writer:    report.NewWriter(cfg.OutputDir, logger.Named("report")),
		Out:       os.Stdout,
	}

	if cfg.UsesRedis() {
		app.Redis, err = redis.NewClient(ctx, logger.Named("redis"))
		if err != nil {
			logger.Fatal("Unable to initialize Redis client", zap.Error(err))
		}
		app.closers = append(app.closers, func() { _ = app.Redis.Close() })
	}

	var shared *goredis.Client
	if app.Redis != nil {
		shared = app.Redis.GetClient()
	}
	asn, geo, closeGeo, err := buildLookups(cfg, logger, shared)
	if err != nil {
		logger.Fatal("Unable to initialize lookups", zap.Error(err))
	}
	app.ASN, app.Geo = asn, geo
	app.closers = append(app.closers, closeGeo)

	switch cfg.StateBackend {
	case config.StateRedis:
		app.State = state.NewRedisStore(app.Redis.GetClient())
	default:
		app.State = state.NewFileStore(cfg.BaseDir)
	}

	if cfg.ClickHouse.Enabled {
		reportsDb, err := db.NewReportsDB(ctx, logger, cfg.ClickHouse.Database, "analyzer")
		if err != nil {
			logger.Fatal("Unable to initialize reports database", zap.Error(err))
		}
		app.Snapshots = reportsDb
		app.closers = append(app.closers, func() { _ = reportsDb.Close() })
	}

	return app
}

// SetupScheduler registers the scheduled run of every configured chain. Overlapping
// ticks are skipped while a previous pass is still running.
func (a *App) SetupScheduler(ctx context.Context) error {
	logger := cronLogger{a.Logger.Named("cron")}
	a.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	_, err := a.Cron.AddFunc(a.Config.Schedule.Cron, func() {
		a.RunScheduled(ctx)
	})
	return err
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.ready.Store(true)
	a.Logger.Info("Cron started", zap.String("cronSpec", a.Config.Schedule.Cron))
}

// StopCron waits for a running pass to finish.
func (a *App) StopCron() {
	a.ready.Store(false)
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

// SetupServer exposes liveness, readiness and metrics while scheduling.
func (a *App) SetupServer() {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })).Methods("GET")
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if a.Ready() {
			w.WriteHeader(200)
		} else {
			w.WriteHeader(503)
		}
	})).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	a.Server = &http.Server{Addr: a.Config.Schedule.Addr, Handler: r}
}

// Ready reports whether the scheduler is running.
func (a *App) Ready() bool { return a.ready.Load() }

// Start serves until ctx is cancelled, then stops the scheduler and releases resources.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("Server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)

	a.Logger.Info("shutting down…")
	a.StopCron()
	a.Close()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}

// Close releases the geo database and the Redis and ClickHouse connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.Logger.Sync()
}

func (a *App) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
