package analysis

import (
	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/shopspring/decimal"
)

// Sentinel bucket names for nodes that cannot be attributed.
const (
	Other        = "Other"
	Unidentified = "Unidentified"
	Invalid      = "Invalid"
)

// ActiveTotal is a role's active and total node split.
type ActiveTotal = inventory.ActiveTotal

// StakeSplit is a role's active and total stake split.
type StakeSplit = inventory.StakeSplit

// GenericCounts are the counters of a chain without node roles.
type GenericCounts struct {
	TotalValidators        int64           `json:"total_validators"`
	TotalNonValidatorNodes int64           `json:"total_non_validator_nodes"`
	TotalStake             decimal.Decimal `json:"total_stake"`
}

// RoleCounts are the counters of a role-partitioned chain.
type RoleCounts struct {
	Roles              map[string]*ActiveTotal `json:"roles"`
	RoleStake          map[string]*StakeSplit  `json:"role_stake"`
	TotalInactiveNodes int64                   `json:"total_inactive_nodes"`
}

// RolePercentages are one role's shares of the chain. A nil field had a zero denominator.
type RolePercentages struct {
	ActiveNodes *float64 `json:"active_nodes,omitempty"`
	TotalNodes  *float64 `json:"total_nodes,omitempty"`
	ActiveStake *float64 `json:"active_stake,omitempty"`
	TotalStake  *float64 `json:"total_stake,omitempty"`
}

// Percentages are a bucket's shares of the chain. A nil field had a zero denominator.
type Percentages struct {
	Stake         *float64                   `json:"stake,omitempty"`
	Validators    *float64                   `json:"validators,omitempty"`
	NonValidators *float64                   `json:"non_validators,omitempty"`
	Nodes         *float64                   `json:"nodes,omitempty"`
	ActiveNodes   *float64                   `json:"active_nodes,omitempty"`
	Roles         map[string]RolePercentages `json:"roles,omitempty"`
}

// Bucket counts the nodes attributed to one provider, continent or country, or to the
// whole chain. Exactly one of GenericCounts and RoleCounts is set, by the chain kind.
type Bucket struct {
	TotalNodes int64 `json:"total_nodes"`
	*GenericCounts
	*RoleCounts
	Percentages Percentages `json:"percentages"`
}

// ContinentBucket nests the country buckets of one continent.
type ContinentBucket struct {
	Bucket
	Countries map[string]*Bucket `json:"countries"`
}

// ActiveNodes returns the nodes that are not inactive.
func (b *Bucket) ActiveNodes() int64 {
	if b.RoleCounts == nil {
		return b.TotalNodes
	}
	return b.TotalNodes - b.TotalInactiveNodes
}

// StakeTotal returns the bucket's stake over every role for role-partitioned buckets.
func (b *Bucket) StakeTotal() decimal.Decimal {
	if b.GenericCounts != nil {
		return b.TotalStake
	}
	total := decimal.Zero
	if b.RoleCounts != nil {
		for _, s := range b.RoleStake {
			total = total.Add(s.Total)
		}
	}
	return total
}

func newGenericBucket() *Bucket {
	return &Bucket{GenericCounts: &GenericCounts{}}
}

// newRoleBucket allocates fresh split maps on every call; buckets never share counters.
func newRoleBucket(roles []string) *Bucket {
	return &Bucket{RoleCounts: &RoleCounts{
		Roles:     inventory.NewRoleSplit(roles),
		RoleStake: inventory.NewStakeSplit(roles),
	}}
}
