// Package tracking holds the providers and countries an operator asked to follow in
// detail. Unlike the chain report they persist across runs.
package tracking

import (
	"time"

	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/shopspring/decimal"
)

// DateLayout is the MM-DD-YYYY form used in report documents and file names.
const DateLayout = "01-02-2006"

// NodeSummary is the per-ip detail kept for a tracked entity. Stake is nil for
// non-validators so a known zero stays distinguishable from not applicable.
type NodeSummary struct {
	Address     string           `json:"address"`
	IsValidator bool             `json:"is_validator"`
	Stake       *decimal.Decimal `json:"stake"`
	Role        string           `json:"role,omitempty"`
	Active      *bool            `json:"active,omitempty"`
	Info        map[string]any   `json:"info,omitempty"`
}

func summarize(node inventory.NodeRecord, role string) NodeSummary {
	s := NodeSummary{
		Address:     node.Address,
		IsValidator: node.IsValidator,
		Role:        role,
		Info:        node.ExtraInfo,
	}
	if node.IsValidator {
		stake := node.Stake.Amount()
		s.Stake = &stake
	}
	if role != "" {
		if active, ok := node.IsActive(); ok {
			s.Active = &active
		}
	}
	return s
}

// counters is the validator/stake bookkeeping shared by every tracked entity.
type counters struct {
	ValidatorCount    int                              `json:"validator_count"`
	NonValidatorCount int                              `json:"non_validator_count"`
	CumulativeStake   decimal.Decimal                  `json:"cumulative_stake"`
	RoleStake         map[string]*inventory.StakeSplit `json:"role_stake,omitempty"`
}

func (c *counters) add(node inventory.NodeRecord, role string) {
	if !node.IsValidator {
		c.NonValidatorCount++
		return
	}
	c.ValidatorCount++
	stake := node.Stake.Amount()
	c.CumulativeStake = c.CumulativeStake.Add(stake)
	if role == "" {
		return
	}
	if c.RoleStake == nil {
		c.RoleStake = map[string]*inventory.StakeSplit{}
	}
	split, ok := c.RoleStake[role]
	if !ok {
		split = &inventory.StakeSplit{}
		c.RoleStake[role] = split
	}
	active, _ := node.IsActive()
	split.Add(stake, active)
}

// ChainTotals are the chain-wide denominators for a tracked entity's shares.
type ChainTotals struct {
	Nodes     int
	Stake     decimal.Decimal
	RoleStake map[string]*inventory.StakeSplit
}

// share returns part*100/whole, or 0 for an empty whole.
func share(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

// stakeShare is share for stake amounts.
func stakeShare(part, whole decimal.Decimal) float64 {
	v, _ := inventory.StakeShare(part, whole)
	return v
}

func roleShares(own, chain map[string]*inventory.StakeSplit) map[string]float64 {
	if len(chain) == 0 {
		return nil
	}
	out := make(map[string]float64, len(chain))
	for role, total := range chain {
		part := decimal.Zero
		if s, ok := own[role]; ok {
			part = s.Total
		}
		out[role] = stakeShare(part, total.Total)
	}
	return out
}

func dateOf(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
