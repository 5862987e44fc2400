package tracking

import (
	"time"

	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/canopy-network/nodedist/pkg/utils"
	"github.com/shopspring/decimal"
)

// Country is a tracked country keyed by ISO alpha-2 code.
type Country struct {
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Chain           string    `json:"chain"`
	MonitoringSince time.Time `json:"monitoring_since"`
	AnalysisDate    time.Time `json:"analysis_date"`
	counters
	Cities map[string]bool        `json:"cities"`
	Nodes  map[string]NodeSummary `json:"nodes"`
}

func NewCountry(code, name, chain string, since time.Time) *Country {
	return &Country{
		Code:            code,
		Name:            name,
		Chain:           chain,
		MonitoringSince: since,
		Cities:          map[string]bool{},
		Nodes:           map[string]NodeSummary{},
	}
}

// RecordNode files ip and its city once; repeats return false and change nothing.
func (c *Country) RecordNode(ip string, node inventory.NodeRecord, city, role string) bool {
	if _, ok := c.Nodes[ip]; ok {
		return false
	}
	if c.Nodes == nil {
		c.Nodes = map[string]NodeSummary{}
	}
	if c.Cities == nil {
		c.Cities = map[string]bool{}
	}
	if city != "" {
		c.Cities[city] = true
	}
	c.add(node, role)
	c.Nodes[ip] = summarize(node, role)
	return true
}

func (c *Country) TotalNodes() int { return len(c.Nodes) }

// CountryReport is the exported document for a tracked country.
type CountryReport struct {
	Country             string                           `json:"country"`
	Code                string                           `json:"code"`
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
	Cities              []string                         `json:"cities"`
	Nodes               map[string]NodeSummary           `json:"nodes"`
}

// ExportReport computes the country's share of the chain. Empty chain totals yield 0.
func (c *Country) ExportReport(totals ChainTotals) CountryReport {
	return CountryReport{
		Country:             c.Name,
		Code:                c.Code,
		AnalysisDate:        dateOf(c.AnalysisDate),
		MonitoringSince:     dateOf(c.MonitoringSince),
		TotalNodes:          c.TotalNodes(),
		ValidatorNodes:      c.ValidatorCount,
		NonValidatorNodes:   c.NonValidatorCount,
		CumulativeStake:     c.CumulativeStake,
		RoleStake:           c.RoleStake,
		StakePercentage:     stakeShare(c.CumulativeStake, totals.Stake),
		RoleStakePercentage: roleShares(c.RoleStake, totals.RoleStake),
		NodePercentage:      share(c.TotalNodes(), totals.Nodes),
		Cities:              utils.SortedKeys(c.Cities),
		Nodes:               c.Nodes,
	}
}
