package tracking

import (
	"fmt"
	"math"

	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/shopspring/decimal"
)

// CoordinateTolerance is the largest latitude or longitude gap, in degrees, at which two
// sites of the same provider in the same city are still one facility. Datacenter ranges
// geolocate to slightly different points inside the same building.
const CoordinateTolerance = 0.2

// Site is where a node geolocates.
type Site struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Datacenter groups a tracked provider's nodes that share one facility.
type Datacenter struct {
	Site
	Provider string `json:"provider"`
	counters
	Nodes map[string]NodeSummary `json:"nodes"`
}

func NewDatacenter(site Site, provider string) *Datacenter {
	return &Datacenter{Site: site, Provider: provider, Nodes: map[string]NodeSummary{}}
}

// SameDatacenter reports whether a and b are the same facility: same city, provider and
// country, and both coordinates within CoordinateTolerance.
func SameDatacenter(a, b *Datacenter) bool {
	return a.City == b.City &&
		a.Provider == b.Provider &&
		a.Country == b.Country &&
		math.Abs(a.Latitude-b.Latitude) < CoordinateTolerance &&
		math.Abs(a.Longitude-b.Longitude) < CoordinateTolerance
}

// SaveNode records ip once. It returns false when ip was already present.
func (d *Datacenter) SaveNode(ip string, node inventory.NodeRecord, role string) bool {
	if _, ok := d.Nodes[ip]; ok {
		return false
	}
	if d.Nodes == nil {
		d.Nodes = map[string]NodeSummary{}
	}
	d.add(node, role)
	d.Nodes[ip] = summarize(node, role)
	return true
}

// DatacenterReport is a datacenter's section of a provider report.
type DatacenterReport struct {
	Country                 string                           `json:"country"`
	City                    string                           `json:"city"`
	Region                  string                           `json:"region"`
	Coordinates             string                           `json:"coordinates"`
	TotalNodes              int                              `json:"total_nodes"`
	ValidatorNodes          int                              `json:"validator_nodes"`
	NonValidatorNodes       int                              `json:"non_validator_nodes"`
	CumulativeStake         decimal.Decimal                  `json:"cumulative_stake"`
	RoleStake               map[string]*inventory.StakeSplit `json:"role_stake,omitempty"`
	ProviderStakePercentage float64                          `json:"provider_stake_percentage"`
	Nodes                   map[string]NodeSummary           `json:"nodes"`
}

func (d *Datacenter) report(providerStake decimal.Decimal) DatacenterReport {
	return DatacenterReport{
		Country:                 d.Country,
		City:                    d.City,
		Region:                  d.Region,
		Coordinates:             fmt.Sprintf("%v, %v", d.Latitude, d.Longitude),
		TotalNodes:              len(d.Nodes),
		ValidatorNodes:          d.ValidatorCount,
		NonValidatorNodes:       d.NonValidatorCount,
		CumulativeStake:         d.CumulativeStake,
		RoleStake:               d.RoleStake,
		ProviderStakePercentage: stakeShare(d.CumulativeStake, providerStake),
		Nodes:                   d.Nodes,
	}
}
