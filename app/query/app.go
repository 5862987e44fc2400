package query

import (
	"context"

	"github.com/canopy-network/nodedist/app/query/types"
	"github.com/canopy-network/nodedist/pkg/config"
	"github.com/canopy-network/nodedist/pkg/db"
	"github.com/canopy-network/nodedist/pkg/logging"
	"github.com/canopy-network/nodedist/pkg/redis"
	"github.com/canopy-network/nodedist/pkg/report"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New("query")
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Unable to load configuration", zap.Error(err))
	}

	app := &types.App{
		Config:  cfg,
		Reports: report.NewReader(cfg.OutputDir),
		Logger:  logger,
	}

	if cfg.ClickHouse.Enabled {
		reportsDb, err := db.NewReportsDB(ctx, logger, cfg.ClickHouse.Database, "query")
		if err != nil {
			logger.Fatal("Unable to initialize reports database", zap.Error(err))
		}
		app.History = reportsDb
	} else {
		logger.Info("ClickHouse disabled - history endpoints will not be available")
	}

	// Run history is optional; the server works from the report files alone.
	if cfg.Redis.Enabled {
		app.Redis, err = redis.NewClient(ctx, logger.Named("redis"))
		if err != nil {
			logger.Warn("Failed to initialize Redis client - run history will be disabled", zap.Error(err))
			app.Redis = nil
		}
	} else {
		logger.Info("Redis disabled - run history will not be available")
	}

	return app
}
