package db

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/nodedist/pkg/analysis"
	"github.com/canopy-network/nodedist/pkg/db/clickhouse"
	"github.com/canopy-network/nodedist/pkg/db/models/reports"
	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/canopy-network/nodedist/pkg/tracking"
	"github.com/canopy-network/nodedist/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ProviderDistributionTable = "provider_distribution"
	GeoDistributionTable      = "geo_distribution"
)

// ReportsDB stores one row per provider and per continent/country for every analyzer run.
type ReportsDB struct {
	clickhouse.Client
	Name string
}

// DatabaseName returns the reports database name.
func (db *ReportsDB) DatabaseName() string {
	return db.Name
}

// InitializeDB creates the distribution tables using raw SQL.
func (db *ReportsDB) InitializeDB(ctx context.Context) error {
	// 1) provider_distribution
	query1 := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			chain String,
			day Date,
			provider String,
			run_id String,
			total_nodes UInt64,
			active_nodes UInt64,
			validators UInt64,
			non_validators UInt64,
			stake Decimal(76, 0),
			nodes_pct Nullable(Float64),
			stake_pct Nullable(Float64),
			version UInt64
		) ENGINE = %s(version)
		ORDER BY (chain, day, provider)
	`, db.Name, ProviderDistributionTable, clickhouse.ReplacingMergeTree)
	if err := db.Exec(ctx, query1); err != nil {
		return fmt.Errorf("create %s: %w", ProviderDistributionTable, err)
	}

	// 2) geo_distribution
	query2 := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			chain String,
			day Date,
			continent String,
			country String,
			run_id String,
			total_nodes UInt64,
			active_nodes UInt64,
			stake Decimal(76, 0),
			nodes_pct Nullable(Float64),
			stake_pct Nullable(Float64),
			version UInt64
		) ENGINE = %s(version)
		ORDER BY (chain, day, continent, country)
	`, db.Name, GeoDistributionTable, clickhouse.ReplacingMergeTree)
	if err := db.Exec(ctx, query2); err != nil {
		return fmt.Errorf("create %s: %w", GeoDistributionTable, err)
	}

	return nil
}

// InsertSnapshot writes the provider and geo rows of report. Rerunning a chain on the same
// day replaces that day's rows once ClickHouse merges.
func (db *ReportsDB) InsertSnapshot(ctx context.Context, report *analysis.ChainReport, runID string) error {
	now := time.Now().UTC()
	providers, geo := BuildSnapshot(report, runID, now, uint64(now.UnixNano()))

	batch, err := db.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO "%s"."%s"`, db.Name, ProviderDistributionTable))
	if err != nil {
		return fmt.Errorf("prepare %s batch: %w", ProviderDistributionTable, err)
	}
	for i := range providers {
		if err := batch.AppendStruct(&providers[i]); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append provider row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send %s batch: %w", ProviderDistributionTable, err)
	}

	batch, err = db.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO "%s"."%s"`, db.Name, GeoDistributionTable))
	if err != nil {
		return fmt.Errorf("prepare %s batch: %w", GeoDistributionTable, err)
	}
	for i := range geo {
		if err := batch.AppendStruct(&geo[i]); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append geo row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send %s batch: %w", GeoDistributionTable, err)
	}

	db.Logger.Debug("Snapshot stored",
		zap.String("chain", report.Chain),
		zap.String("runID", runID),
		zap.Int("providers", len(providers)),
		zap.Int("geo", len(geo)))
	return nil
}

// ProviderHistory returns the last N daily rows of a provider, newest first.
func (db *ReportsDB) ProviderHistory(ctx context.Context, chain, provider string, limit int) ([]reports.ProviderDistribution, error) {
	query := fmt.Sprintf(`
		SELECT chain, day, provider, run_id, total_nodes, active_nodes, validators, non_validators,
			stake, nodes_pct, stake_pct, version
		FROM "%s"."%s" FINAL
		WHERE chain = ? AND provider = ?
		ORDER BY day DESC
		LIMIT ?
	`, db.Name, ProviderDistributionTable)

	var rows []reports.ProviderDistribution
	if err := db.Select(ctx, &rows, query, chain, provider, limit); err != nil {
		return nil, fmt.Errorf("get provider history: %w", err)
	}
	return rows, nil
}

// GeoHistory returns the last N daily continent rows, or the country rows of a continent
// when continent is not empty.
func (db *ReportsDB) GeoHistory(ctx context.Context, chain, continent string, limit int) ([]reports.GeoDistribution, error) {
	query := fmt.Sprintf(`
		SELECT chain, day, continent, country, run_id, total_nodes, active_nodes,
			stake, nodes_pct, stake_pct, version
		FROM "%s"."%s" FINAL
		WHERE chain = ? AND %s
		ORDER BY day DESC, continent, country
		LIMIT ?
	`, db.Name, GeoDistributionTable, geoFilter(continent))

	args := []any{chain}
	if continent != "" {
		args = append(args, continent)
	}
	args = append(args, limit)

	var rows []reports.GeoDistribution
	if err := db.Select(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get geo history: %w", err)
	}
	return rows, nil
}

func geoFilter(continent string) string {
	if continent == "" {
		return "country = ''"
	}
	return "continent = ? AND country != ''"
}

// BuildSnapshot flattens report into rows. Providers are emitted in name order; each
// continent row precedes its countries.
func BuildSnapshot(report *analysis.ChainReport, runID string, at time.Time, version uint64) ([]reports.ProviderDistribution, []reports.GeoDistribution) {
	day := snapshotDay(report.AnalysisDate, at)
	root := &report.Bucket
	rootStake := root.StakeTotal()

	providers := make([]reports.ProviderDistribution, 0, len(report.Providers))
	for _, name := range utils.SortedKeys(report.Providers) {
		b := report.Providers[name]
		row := reports.ProviderDistribution{
			Chain:       report.Chain,
			Day:         day,
			Provider:    name,
			RunID:       runID,
			TotalNodes:  uint64(b.TotalNodes),
			ActiveNodes: uint64(b.ActiveNodes()),
			Stake:       b.StakeTotal(),
			NodesPct:    b.Percentages.Nodes,
			StakePct:    sharePtr(b.StakeTotal(), rootStake),
			Version:     version,
		}
		if b.GenericCounts != nil {
			row.Validators = uint64(b.TotalValidators)
			row.NonValidators = uint64(b.TotalNonValidatorNodes)
		}
		providers = append(providers, row)
	}

	geo := []reports.GeoDistribution{}
	for _, continent := range utils.SortedKeys(report.Continents) {
		cb := report.Continents[continent]
		geo = append(geo, geoRow(report.Chain, day, continent, "", runID, &cb.Bucket, rootStake, version))
		for _, country := range utils.SortedKeys(cb.Countries) {
			geo = append(geo, geoRow(report.Chain, day, continent, country, runID, cb.Countries[country], rootStake, version))
		}
	}
	return providers, geo
}

func geoRow(chain string, day time.Time, continent, country, runID string, b *analysis.Bucket, rootStake decimal.Decimal, version uint64) reports.GeoDistribution {
	return reports.GeoDistribution{
		Chain:       chain,
		Day:         day,
		Continent:   continent,
		Country:     country,
		RunID:       runID,
		TotalNodes:  uint64(b.TotalNodes),
		ActiveNodes: uint64(b.ActiveNodes()),
		Stake:       b.StakeTotal(),
		NodesPct:    b.Percentages.Nodes,
		StakePct:    sharePtr(b.StakeTotal(), rootStake),
		Version:     version,
	}
}

// snapshotDay parses the report date; documents with another timestamp format fall back
// to the run day.
func snapshotDay(date string, at time.Time) time.Time {
	if d, err := time.Parse(tracking.DateLayout, date); err == nil {
		return d
	}
	y, m, dd := at.UTC().Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func sharePtr(part, whole decimal.Decimal) *float64 {
	v, ok := inventory.StakeShare(part, whole)
	if !ok {
		return nil
	}
	return &v
}
