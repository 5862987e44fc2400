package db

import (
	"context"

	"github.com/canopy-network/nodedist/pkg/analysis"
	"github.com/canopy-network/nodedist/pkg/db/models/reports"
)

// SnapshotStore is what the analyzer needs to record a run.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, report *analysis.ChainReport, runID string) error
	Close() error
}

// HistoryStore is what the query server reads back.
type HistoryStore interface {
	ProviderHistory(ctx context.Context, chain, provider string, limit int) ([]reports.ProviderDistribution, error)
	GeoHistory(ctx context.Context, chain, continent string, limit int) ([]reports.GeoDistribution, error)
	Ping(ctx context.Context) error
	Close() error
}
