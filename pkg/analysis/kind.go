package analysis

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/shopspring/decimal"
)

// ErrInvalidRole is returned for a node on a role-partitioned chain whose role metadata
// is missing or unknown.
var ErrInvalidRole = errors.New("invalid node role")

// Chain kind names as they appear in configuration.
const (
	KindGeneric         = "generic"
	KindRolePartitioned = "role_partitioned"
)

// ChainKind is the per-run strategy that decides bucket shape, counter semantics and
// percentage rules.
type ChainKind interface {
	Name() string
	NewBucket() *Bucket
	// Classify returns the role a node is counted under, "" for kinds without roles.
	Classify(node inventory.NodeRecord) (string, error)
	Observe(b *Bucket, node inventory.NodeRecord, role string)
	Percentages(b, root *Bucket)
}

// KindFor resolves a configured kind name. Roles default to inventory.DefaultRoles.
func KindFor(name string, roles []string) (ChainKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", KindGeneric:
		return Generic{}, nil
	case KindRolePartitioned:
		if len(roles) == 0 {
			roles = inventory.DefaultRoles
		}
		return RolePartitioned{Roles: roles}, nil
	default:
		return nil, fmt.Errorf("unknown chain kind %q", name)
	}
}

// pct returns part*100/whole, or nil when whole is zero.
func pct(part, whole int64) *float64 {
	if whole == 0 {
		return nil
	}
	v := float64(part) * 100 / float64(whole)
	return &v
}

// stakePct is pct for stake amounts, computed in decimal so large totals keep precision.
func stakePct(part, whole decimal.Decimal) *float64 {
	v, ok := inventory.StakeShare(part, whole)
	if !ok {
		return nil
	}
	return &v
}

// Generic splits nodes into validators and non-validators; only validators carry stake.
type Generic struct{}

func (Generic) Name() string { return KindGeneric }

func (Generic) NewBucket() *Bucket { return newGenericBucket() }

func (Generic) Classify(inventory.NodeRecord) (string, error) { return "", nil }

func (Generic) Observe(b *Bucket, node inventory.NodeRecord, _ string) {
	b.TotalNodes++
	if node.IsValidator {
		b.TotalValidators++
		b.TotalStake = b.TotalStake.Add(node.Stake.Amount())
		return
	}
	b.TotalNonValidatorNodes++
}

func (Generic) Percentages(b, root *Bucket) {
	b.Percentages = Percentages{
		Stake:         stakePct(b.TotalStake, root.TotalStake),
		Validators:    pct(b.TotalValidators, root.TotalValidators),
		NonValidators: pct(b.TotalNonValidatorNodes, root.TotalNonValidatorNodes),
		Nodes:         pct(b.TotalNodes, root.TotalNodes),
	}
}

// RolePartitioned counts nodes per role with an orthogonal active/inactive split. Active
// nodes add to both halves of their role's split; inactive ones only to the total.
type RolePartitioned struct {
	Roles []string
}

func (RolePartitioned) Name() string { return KindRolePartitioned }

func (k RolePartitioned) NewBucket() *Bucket { return newRoleBucket(k.Roles) }

func (k RolePartitioned) Classify(node inventory.NodeRecord) (string, error) {
	role := node.Role()
	if role == "" {
		return "", fmt.Errorf("%w: missing extra_info.role", ErrInvalidRole)
	}
	if !slices.Contains(k.Roles, role) {
		return "", fmt.Errorf("%w %q, expected one of %v", ErrInvalidRole, role, k.Roles)
	}
	if _, ok := node.IsActive(); !ok {
		return "", fmt.Errorf("%w: missing extra_info.is_active for role %q", ErrInvalidRole, role)
	}
	return role, nil
}

func (RolePartitioned) Observe(b *Bucket, node inventory.NodeRecord, role string) {
	active, _ := node.IsActive()
	count := b.Roles[role]
	if active {
		count.Active++
	} else {
		b.TotalInactiveNodes++
	}
	count.Total++
	b.RoleStake[role].Add(node.Stake.Amount(), active)
	b.TotalNodes++
}

// Percentages divides each role by the chain's own figure for that role: active stake by
// active stake and total stake by total stake.
func (k RolePartitioned) Percentages(b, root *Bucket) {
	p := Percentages{
		Nodes:       pct(b.TotalNodes, root.TotalNodes),
		ActiveNodes: pct(b.ActiveNodes(), root.ActiveNodes()),
		Roles:       make(map[string]RolePercentages, len(k.Roles)),
	}
	for _, role := range k.Roles {
		count, rootCount := b.Roles[role], root.Roles[role]
		weight, rootWeight := b.RoleStake[role], root.RoleStake[role]
		p.Roles[role] = RolePercentages{
			ActiveNodes: pct(count.Active, rootCount.Active),
			TotalNodes:  pct(count.Total, rootCount.Total),
			ActiveStake: stakePct(weight.Active, rootWeight.Active),
			TotalStake:  stakePct(weight.Total, rootWeight.Total),
		}
	}
	b.Percentages = p
}
