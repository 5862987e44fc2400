package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/canopy-network/nodedist/pkg/analysis"
	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/canopy-network/nodedist/pkg/tracking"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bigStake does not fit in an int64.
const bigStake = "42000000000000000000000000"

func sampleRun() (*analysis.ChainReport, *tracking.Set) {
	report := analysis.NewChainReport("aptos", analysis.Generic{}, nil, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	report.TotalNodes = 3
	report.TotalStake = decimal.RequireFromString(bigStake)

	tracked := tracking.NewSet()
	p := tracking.NewProvider("AWS", "Amazon", "aptos", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	p.RecordNode("3.3.3.3", inventory.NodeRecord{IsValidator: true, Stake: inventory.NewStake(bigStake), Address: "a"}, tracking.Site{City: "Ashburn"}, "")
	tracked.AddProvider(p)
	c := tracking.NewCountry("DE", "Germany", "aptos", time.Now())
	tracked.AddCountry(c)
	return report, tracked
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := LoadProvider(ctx, s, "aptos", "AWS")
	require.ErrorIs(t, err, ErrNotFound)

	report, tracked := sampleRun()
	require.NoError(t, SaveRun(ctx, s, report, tracked))

	p, err := LoadProvider(ctx, s, "aptos", "AWS")
	require.NoError(t, err)
	assert.Equal(t, "Amazon", p.Name)
	assert.Equal(t, bigStake, p.CumulativeStake.String())
	assert.True(t, p.SeenIPs["3.3.3.3"])
	assert.Equal(t, 1, p.TotalNodes())

	c, err := LoadCountry(ctx, s, "aptos", "DE")
	require.NoError(t, err)
	assert.Equal(t, "Germany", c.Name)

	r, err := LoadReport(ctx, s, "aptos")
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.TotalNodes)
	require.NotNil(t, r.GenericCounts)
	assert.Equal(t, bigStake, r.TotalStake.String())
	assert.Nil(t, r.RoleCounts)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	exerciseStore(t, s)

	_, err := os.Stat(filepath.Join(dir, "memory", "aptos", "providers", "AWS.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "memory", "aptos", "countries", "DE.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "memory", "aptos", "aptos.json"))
	require.NoError(t, err)
}

func TestFileStoreCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	path := s.Path(ProviderKey("aptos", "AWS"))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := LoadProvider(context.Background(), s, "aptos", "AWS")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.FlushDB(context.Background()).Err())

	exerciseStore(t, NewRedisStore(rdb))

	n, err := rdb.Exists(context.Background(), "nodedist:aptos:provider:AWS").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
