package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// GeoDistribution is one continent (Country empty) or one country of a continent for one run.
type GeoDistribution struct {
	Chain       string          `ch:"chain" json:"chain"`
	Day         time.Time       `ch:"day" json:"day"`
	Continent   string          `ch:"continent" json:"continent"`
	Country     string          `ch:"country" json:"country"`
	RunID       string          `ch:"run_id" json:"run_id"`
	TotalNodes  uint64          `ch:"total_nodes" json:"total_nodes"`
	ActiveNodes uint64          `ch:"active_nodes" json:"active_nodes"`
	Stake       decimal.Decimal `ch:"stake" json:"stake"`
	NodesPct    *float64        `ch:"nodes_pct" json:"nodes_pct"`
	StakePct    *float64        `ch:"stake_pct" json:"stake_pct"`
	Version     uint64          `ch:"version" json:"version"`
}
