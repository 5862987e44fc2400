package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderDistribution is one provider's bucket for one run. ReplacingMergeTree(version)
// keeps the newest run of a day per (chain, day, provider).
type ProviderDistribution struct {
	Chain         string          `ch:"chain" json:"chain"`
	Day           time.Time       `ch:"day" json:"day"`
	Provider      string          `ch:"provider" json:"provider"`
	RunID         string          `ch:"run_id" json:"run_id"`
	TotalNodes    uint64          `ch:"total_nodes" json:"total_nodes"`
	ActiveNodes   uint64          `ch:"active_nodes" json:"active_nodes"`
	Validators    uint64          `ch:"validators" json:"validators"`
	NonValidators uint64          `ch:"non_validators" json:"non_validators"`
	Stake         decimal.Decimal `ch:"stake" json:"stake"`
	NodesPct      *float64        `ch:"nodes_pct" json:"nodes_pct"`
	StakePct      *float64        `ch:"stake_pct" json:"stake_pct"`
	Version       uint64          `ch:"version" json:"version"`
}
