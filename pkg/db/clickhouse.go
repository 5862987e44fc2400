package db

import (
	"context"

	"github.com/canopy-network/nodedist/pkg/db/clickhouse"
	"github.com/canopy-network/nodedist/pkg/utils"
	"go.uber.org/zap"
)

// NewReportsDB connects to the snapshot database and creates its tables. The database
// name comes from CLICKHOUSE_DB unless dbName is given.
func NewReportsDB(ctx context.Context, logger *zap.Logger, dbName, component string) (*ReportsDB, error) {
	if dbName == "" {
		dbName = utils.Env("CLICKHOUSE_DB", "nodedist")
	}
	logger = logger.With(zap.String("db", dbName), zap.String("component", component))

	client, err := clickhouse.New(ctx, logger, dbName, clickhouse.PoolConfigFor(component))
	if err != nil {
		return nil, err
	}

	reportsDb := &ReportsDB{Client: client, Name: client.Database}
	if err := reportsDb.InitializeDB(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return reportsDb, nil
}
