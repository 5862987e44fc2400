package db

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/canopy-network/nodedist/pkg/analysis"
	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/canopy-network/nodedist/pkg/lookup"
	"github.com/canopy-network/nodedist/pkg/registry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticASN map[string]string

func (s staticASN) LookupASN(_ context.Context, ip string) (lookup.ASNResult, error) {
	asn, ok := s[ip]
	if !ok {
		return lookup.ASNResult{}, lookup.ErrNoASN
	}
	return lookup.ASNResult{ASN: asn}, nil
}

type staticGeo map[string]lookup.Location

func (s staticGeo) LookupGeo(_ context.Context, ip string) (lookup.Location, error) {
	loc, ok := s[ip]
	if !ok {
		return lookup.Location{}, lookup.ErrNoLocation
	}
	return loc, nil
}

const doc = `{"timestamp": "05-01-2024", "nodes": {
	"3.3.3.3": {"is_validator": true, "stake": "300", "address": "a"},
	"4.4.4.4": {"is_validator": true, "stake": "100", "address": "b"},
	"5.5.5.5": {"is_validator": false, "address": "c"}
}}`

func sampleReport(t *testing.T) *analysis.ChainReport {
	t.Helper()
	d, err := inventory.Decode(strings.NewReader(doc))
	require.NoError(t, err)

	berlin := lookup.Location{Country: "Germany", CountryCode: "DE", City: "Berlin", Continent: "Europe"}
	engine := analysis.NewEngine(analysis.Generic{}, analysis.Deps{
		Providers: registry.NewProviderRegistry(map[string]registry.ProviderEntry{
			"16509": {Provider: "Amazon", Short: "AWS"},
		}),
		ASN: staticASN{"3.3.3.3": "16509", "4.4.4.4": "16509", "5.5.5.5": "24940"},
		Geo: staticGeo{
			"3.3.3.3": berlin,
			"4.4.4.4": {Country: "United States", CountryCode: "US", City: "Ashburn", Continent: "North America"},
		},
		Logger: zaptest.NewLogger(t),
	})

	report := analysis.NewChainReport("aptos", engine.Kind(), d, time.Now())
	require.NoError(t, engine.Aggregate(context.Background(), report, d.Nodes))
	engine.CalculatePercentages(report)
	return report
}

func TestBuildSnapshot(t *testing.T) {
	report := sampleReport(t)
	at := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)

	providers, geo := BuildSnapshot(report, "run-1", at, 42)

	require.Len(t, providers, 2)
	assert.Equal(t, "Amazon", providers[0].Provider)
	assert.Equal(t, analysis.Other, providers[1].Provider)

	amazon := providers[0]
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), amazon.Day, "document date wins over run date")
	assert.EqualValues(t, 2, amazon.TotalNodes)
	assert.EqualValues(t, 2, amazon.Validators)
	assert.Equal(t, "400", amazon.Stake.String())
	require.NotNil(t, amazon.StakePct)
	assert.InDelta(t, 100.0, *amazon.StakePct, 1e-9)
	assert.Equal(t, uint64(42), amazon.Version)
	assert.Equal(t, "run-1", amazon.RunID)

	other := providers[1]
	assert.EqualValues(t, 1, other.NonValidators)
	require.NotNil(t, other.StakePct)
	assert.Zero(t, *other.StakePct)

	var continents, countries int
	var sum uint64
	for _, row := range geo {
		if row.Country == "" {
			continents++
			sum += row.TotalNodes
			continue
		}
		countries++
	}
	assert.Equal(t, 3, continents, "Europe, North America and Unidentified")
	assert.Equal(t, 3, countries)
	assert.EqualValues(t, report.TotalNodes, sum)
	assert.Equal(t, "", geo[0].Country, "continent row precedes its countries")
}

func TestBuildSnapshotZeroStake(t *testing.T) {
	report := analysis.NewChainReport("empty", analysis.Generic{}, nil, time.Now())
	report.Providers["Amazon"] = analysis.Generic{}.NewBucket()

	providers, geo := BuildSnapshot(report, "run", time.Now(), 1)
	require.Len(t, providers, 1)
	assert.Nil(t, providers[0].StakePct)
	assert.Empty(t, geo)
}

func TestBuildSnapshotStakeBeyondInt64(t *testing.T) {
	report := analysis.NewChainReport("evmos", analysis.Generic{}, nil, time.Now())
	kind := analysis.Generic{}
	big := inventory.NodeRecord{IsValidator: true, Stake: inventory.NewStake("1000000000000000000000000")}
	report.Providers["Amazon"] = kind.NewBucket()
	for i := 0; i < 3; i++ {
		kind.Observe(&report.Bucket, big, "")
	}
	kind.Observe(report.Providers["Amazon"], big, "")

	providers, _ := BuildSnapshot(report, "run", time.Now(), 1)
	require.Len(t, providers, 1)
	assert.Equal(t, "1000000000000000000000000", providers[0].Stake.String())
	require.NotNil(t, providers[0].StakePct)
	assert.InDelta(t, 100.0/3, *providers[0].StakePct, 1e-9)
}

func TestSnapshotDayFallsBackToRunDay(t *testing.T) {
	at := time.Date(2024, 6, 9, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), snapshotDay("2024-06-09T23:00:00Z", at))
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), snapshotDay("01-02-2024", at))
}

func TestGeoFilter(t *testing.T) {
	assert.Equal(t, "country = ''", geoFilter(""))
	assert.Equal(t, "continent = ? AND country != ''", geoFilter("Europe"))
}

// TestReportsDBRoundTrip needs a ClickHouse server; set CLICKHOUSE_TEST_ADDR to run it.
func TestReportsDBRoundTrip(t *testing.T) {
	addr := os.Getenv("CLICKHOUSE_TEST_ADDR")
	if addr == "" {
		t.Skip("CLICKHOUSE_TEST_ADDR not set")
	}
	t.Setenv("CLICKHOUSE_ADDR", addr)

	ctx := context.Background()
	reportsDb, err := NewReportsDB(ctx, zaptest.NewLogger(t), "nodedist_test", "analyzer")
	require.NoError(t, err)
	defer reportsDb.Close()

	report := sampleReport(t)
	require.NoError(t, reportsDb.InsertSnapshot(ctx, report, uuid.NewString()))

	rows, err := reportsDb.ProviderHistory(ctx, "aptos", "Amazon", 10)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.EqualValues(t, 2, rows[0].TotalNodes)

	geo, err := reportsDb.GeoHistory(ctx, "aptos", "Europe", 10)
	require.NoError(t, err)
	require.NotEmpty(t, geo)
	assert.Equal(t, "Germany", geo[0].Country)
}
