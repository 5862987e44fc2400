package tracking

import (
	"time"

	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/shopspring/decimal"
)

// Provider is a tracked infrastructure provider and the datacenters its nodes run in.
type Provider struct {
	Short           string    `json:"short"`
	Name            string    `json:"name"`
	Chain           string    `json:"chain"`
	MonitoringSince time.Time `json:"monitoring_since"`
	AnalysisDate    time.Time `json:"analysis_date"`
	counters
	SeenIPs     map[string]bool `json:"seen_ips"`
	Datacenters []*Datacenter   `json:"datacenters"`
}

func NewProvider(short, name, chain string, since time.Time) *Provider {
	return &Provider{
		Short:           short,
		Name:            name,
		Chain:           chain,
		MonitoringSince: since,
		SeenIPs:         map[string]bool{},
	}
}

// RecordNode files ip under the datacenter matching site and updates the provider's
// totals. A second call for the same ip changes nothing and returns false.
func (p *Provider) RecordNode(ip string, node inventory.NodeRecord, site Site, role string) bool {
	if p.SeenIPs[ip] {
		return false
	}
	if p.SeenIPs == nil {
		p.SeenIPs = map[string]bool{}
	}
	p.datacenterFor(site).SaveNode(ip, node, role)
	p.add(node, role)
	p.SeenIPs[ip] = true
	return true
}

// datacenterFor returns the existing datacenter for site, creating it on first sight.
func (p *Provider) datacenterFor(site Site) *Datacenter {
	candidate := NewDatacenter(site, p.Name)
	for _, dc := range p.Datacenters {
		if SameDatacenter(dc, candidate) {
			return dc
		}
	}
	p.Datacenters = append(p.Datacenters, candidate)
	return candidate
}

// TotalNodes sums the nodes of every datacenter.
func (p *Provider) TotalNodes() int {
	total := 0
	for _, dc := range p.Datacenters {
		total += len(dc.Nodes)
	}
	return total
}

// ProviderReport is the exported document for a tracked provider.
type ProviderReport struct {
	Provider            string                           `json:"provider"`
	Short               string                           `json:"short"`
	AnalysisDate        string                           `json:"analysis_date"`
	MonitoringSince     string                           `json:"monitoring_since"`
	TotalNodes          int                              `json:"total_nodes"`
	ValidatorNodes      int                              `json:"validator_nodes"`
	NonValidatorNodes   int                              `json:"non_validator_nodes"`
	CumulativeStake     decimal.Decimal                  `json:"cumulative_stake"`
	RoleStake           map[string]*inventory.StakeSplit `json:"role_stake,omitempty"`
	StakePercentage     float64                          `json:"stake_percentage"`
	RoleStakePercentage map[string]float64               `json:"role_stake_percentage,omitempty"`
	NodePercentage      float64                          `json:"node_percentage"`
	DatacenterCount     int                              `json:"datacenter_count"`
	Datacenters         []DatacenterReport               `json:"datacenters"`
}

// ExportReport computes the provider's share of the chain. Empty chain totals yield 0.
func (p *Provider) ExportReport(totals ChainTotals) ProviderReport {
	r := ProviderReport{
		Provider:            p.Name,
		Short:               p.Short,
		AnalysisDate:        dateOf(p.AnalysisDate),
		MonitoringSince:     dateOf(p.MonitoringSince),
		TotalNodes:          p.TotalNodes(),
		ValidatorNodes:      p.ValidatorCount,
		NonValidatorNodes:   p.NonValidatorCount,
		CumulativeStake:     p.CumulativeStake,
		RoleStake:           p.RoleStake,
		StakePercentage:     stakeShare(p.CumulativeStake, totals.Stake),
		RoleStakePercentage: roleShares(p.RoleStake, totals.RoleStake),
		DatacenterCount:     len(p.Datacenters),
		Datacenters:         make([]DatacenterReport, 0, len(p.Datacenters)),
	}
	r.NodePercentage = share(r.TotalNodes, totals.Nodes)
	for _, dc := range p.Datacenters {
		r.Datacenters = append(r.Datacenters, dc.report(p.CumulativeStake))
	}
	return r
}
