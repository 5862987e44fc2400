package types

import (
	"context"
	"net/http"
	"time"

	"github.com/canopy-network/nodedist/pkg/config"
	"github.com/canopy-network/nodedist/pkg/db"
	"github.com/canopy-network/nodedist/pkg/redis"
	"github.com/canopy-network/nodedist/pkg/report"
	"go.uber.org/zap"
)

type App struct {
	Config *config.Config
	// Reports serves the newest report files of the output directory.
	Reports *report.Reader
	// History is nil unless ClickHouse snapshots are enabled.
	History db.HistoryStore
	// Redis is nil unless run notifications are enabled.
	Redis *redis.Client
	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application.
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

	if a.History != nil {
		if err := a.History.Close(); err != nil {
			a.Logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
