package inventory

import "github.com/shopspring/decimal"

// Roles of a role-partitioned chain.
const (
	RoleExecution    = "execution"
	RoleConsensus    = "consensus"
	RoleCollection   = "collection"
	RoleVerification = "verification"
	RoleAccess       = "access"
)

// DefaultRoles lists the five roles in report order.
var DefaultRoles = []string{RoleExecution, RoleConsensus, RoleCollection, RoleVerification, RoleAccess}

// ActiveTotal splits a counter between active nodes and all nodes. Total always includes Active.
type ActiveTotal struct {
	Active int64 `json:"active"`
	Total  int64 `json:"total"`
}

// NewRoleSplit returns a fresh zeroed split per role.
func NewRoleSplit(roles []string) map[string]*ActiveTotal {
	out := make(map[string]*ActiveTotal, len(roles))
	for _, r := range roles {
		out[r] = &ActiveTotal{}
	}
	return out
}

// StakeSplit is ActiveTotal for stake amounts.
type StakeSplit struct {
	Active decimal.Decimal `json:"active"`
	Total  decimal.Decimal `json:"total"`
}

// Add counts amount in the total, and in the active half when active is set.
func (s *StakeSplit) Add(amount decimal.Decimal, active bool) {
	s.Total = s.Total.Add(amount)
	if active {
		s.Active = s.Active.Add(amount)
	}
}

// NewStakeSplit returns a fresh zeroed stake split per role.
func NewStakeSplit(roles []string) map[string]*StakeSplit {
	out := make(map[string]*StakeSplit, len(roles))
	for _, r := range roles {
		out[r] = &StakeSplit{}
	}
	return out
}
