package tracking

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validator(stake string) inventory.NodeRecord {
	return inventory.NodeRecord{IsValidator: true, Stake: inventory.NewStake(stake), Address: "addr", ExtraInfo: map[string]any{}}
}

func flowNode(role string, active bool, stake string) inventory.NodeRecord {
	n := validator(stake)
	n.ExtraInfo = map[string]any{"role": role, "is_active": active}
	return n
}

var berlin = Site{Country: "Germany", CountryCode: "DE", City: "Berlin", Region: "Berlin", Latitude: 52.52, Longitude: 13.40}

func TestSameDatacenterThreshold(t *testing.T) {
	base := NewDatacenter(berlin, "Hetzner")

	near := berlin
	near.Latitude += 0.19
	near.Longitude += 0.19
	assert.True(t, SameDatacenter(base, NewDatacenter(near, "Hetzner")))
	assert.True(t, SameDatacenter(NewDatacenter(near, "Hetzner"), base))

	far := berlin
	far.Latitude += 0.21
	assert.False(t, SameDatacenter(base, NewDatacenter(far, "Hetzner")))
	assert.False(t, SameDatacenter(NewDatacenter(far, "Hetzner"), base))

	other := berlin
	other.City = "Potsdam"
	assert.False(t, SameDatacenter(base, NewDatacenter(other, "Hetzner")))
	assert.False(t, SameDatacenter(base, NewDatacenter(berlin, "OVH")))
}

func TestProviderRecordNodeIdempotent(t *testing.T) {
	p := NewProvider("HTZ", "Hetzner", "aptos", time.Now())

	require.True(t, p.RecordNode("1.2.3.4", validator("100.9"), berlin, ""))
	before := *p
	beforeDC := len(p.Datacenters)

	assert.False(t, p.RecordNode("1.2.3.4", validator("500"), berlin, ""))
	assert.Equal(t, before.ValidatorCount, p.ValidatorCount)
	assert.Equal(t, before.CumulativeStake, p.CumulativeStake)
	assert.Equal(t, beforeDC, len(p.Datacenters))
	assert.Equal(t, 1, p.TotalNodes())
	assert.Equal(t, "100", p.CumulativeStake.String())
}

func TestProviderGroupsNearbySites(t *testing.T) {
	p := NewProvider("HTZ", "Hetzner", "aptos", time.Now())
	near := berlin
	near.Latitude += 0.1
	far := berlin
	far.Latitude += 1

	p.RecordNode("1.1.1.2", validator("10"), berlin, "")
	p.RecordNode("1.1.1.3", inventory.NodeRecord{Address: "x"}, near, "")
	p.RecordNode("1.1.1.4", validator("30"), far, "")

	require.Len(t, p.Datacenters, 2)
	assert.Len(t, p.Datacenters[0].Nodes, 2)
	assert.Equal(t, 3, p.TotalNodes())
	assert.Equal(t, 2, p.ValidatorCount)
	assert.Equal(t, 1, p.NonValidatorCount)
	assert.Nil(t, p.Datacenters[0].Nodes["1.1.1.3"].Stake)
	require.NotNil(t, p.Datacenters[0].Nodes["1.1.1.2"].Stake)
	assert.Equal(t, "10", p.Datacenters[0].Nodes["1.1.1.2"].Stake.String())
}

func TestCountryRecordNodeIdempotent(t *testing.T) {
	c := NewCountry("DE", "Germany", "aptos", time.Now())
	require.True(t, c.RecordNode("1.2.3.4", validator("7"), "Berlin", ""))
	assert.False(t, c.RecordNode("1.2.3.4", validator("7"), "Munich", ""))

	assert.Equal(t, 1, c.TotalNodes())
	assert.Equal(t, "7", c.CumulativeStake.String())
	assert.Equal(t, map[string]bool{"Berlin": true}, c.Cities)
}

func TestRoleStakeSplit(t *testing.T) {
	p := NewProvider("AWS", "Amazon", "flow", time.Now())
	p.RecordNode("3.3.3.1", flowNode("consensus", true, "500"), berlin, "consensus")
	p.RecordNode("3.3.3.2", flowNode("consensus", false, "200"), berlin, "consensus")

	require.Contains(t, p.RoleStake, "consensus")
	assert.Equal(t, "500", p.RoleStake["consensus"].Active.String())
	assert.Equal(t, "700", p.RoleStake["consensus"].Total.String())
	active := p.Datacenters[0].Nodes["3.3.3.2"].Active
	require.NotNil(t, active)
	assert.False(t, *active)
}

func TestExportReportZeroTotals(t *testing.T) {
	p := NewProvider("HTZ", "Hetzner", "aptos", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	p.RecordNode("1.2.3.4", inventory.NodeRecord{Address: "x"}, berlin, "")

	r := p.ExportReport(ChainTotals{})
	assert.Zero(t, r.StakePercentage)
	assert.Zero(t, r.NodePercentage)
	assert.Equal(t, "03-01-2024", r.MonitoringSince)
	require.Len(t, r.Datacenters, 1)
	assert.Zero(t, r.Datacenters[0].ProviderStakePercentage)

	c := NewCountry("DE", "Germany", "aptos", time.Now())
	cr := c.ExportReport(ChainTotals{})
	assert.Zero(t, cr.StakePercentage)
	assert.Empty(t, cr.Cities)
}

func TestExportReportShares(t *testing.T) {
	p := NewProvider("HTZ", "Hetzner", "aptos", time.Now())
	p.RecordNode("1.2.3.4", validator("25"), berlin, "")

	r := p.ExportReport(ChainTotals{Nodes: 4, Stake: decimal.NewFromInt(100)})
	assert.InDelta(t, 25.0, r.StakePercentage, 1e-9)
	assert.InDelta(t, 25.0, r.NodePercentage, 1e-9)
	assert.InDelta(t, 100.0, r.Datacenters[0].ProviderStakePercentage, 1e-9)
	assert.Equal(t, 1, r.DatacenterCount)
}

func TestSharesBeyondInt64(t *testing.T) {
	const big = "1000000000000000000000000"
	p := NewProvider("AWS", "Amazon", "evmos", time.Now())
	p.RecordNode("3.3.3.1", validator(big), berlin, "")
	p.RecordNode("3.3.3.2", validator(big), berlin, "")
	assert.Equal(t, "2000000000000000000000000", p.CumulativeStake.String())

	chain, err := decimal.NewFromString("8000000000000000000000000")
	require.NoError(t, err)
	r := p.ExportReport(ChainTotals{Nodes: 8, Stake: chain})
	assert.InDelta(t, 25.0, r.StakePercentage, 1e-9)
	assert.InDelta(t, 100.0, r.Datacenters[0].ProviderStakePercentage, 1e-9)

	bz, err := json.Marshal(p)
	require.NoError(t, err)
	var back Provider
	require.NoError(t, json.Unmarshal(bz, &back))
	assert.Equal(t, "2000000000000000000000000", back.CumulativeStake.String())
}

func TestProviderStateRoundTrip(t *testing.T) {
	p := NewProvider("HTZ", "Hetzner", "aptos", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	p.RecordNode("1.2.3.4", validator("25"), berlin, "")

	bz, err := json.Marshal(p)
	require.NoError(t, err)

	var back Provider
	require.NoError(t, json.Unmarshal(bz, &back))
	assert.Equal(t, "25", back.CumulativeStake.String())
	assert.False(t, back.RecordNode("1.2.3.4", validator("25"), berlin, ""), "seen ips survive persistence")
	assert.Equal(t, 1, back.TotalNodes())
}
