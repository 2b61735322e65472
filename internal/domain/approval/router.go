// Package approval decides who may act on a pending claim. The
// hierarchy table and the delegation extension are pure functions over
// domain entities; persistence and clocks stay outside.
package approval

import (
	"time"

	"github.com/ge-entretec/debours/internal/domain/entity"
)

// approvableRole maps each approver role to the claimant role it may
// approve. Roles absent from the table approve nothing.
var approvableRole = map[entity.Role]entity.Role{
	entity.RoleEntityManager: entity.RoleCollaborator,
	entity.RoleUnitManager:   entity.RoleEntityManager,
	entity.RoleDirector:      entity.RoleUnitManager,
}

// InEffect reports whether a delegation is usable on the given date:
// stored status active and the date within [start, end]. Expiry is
// derived here at read time; there is no background sweep, and every
// caller (router, registry listing, display) shares this predicate.
func InEffect(d *entity.Delegation, at time.Time) bool {
	if d.Status != entity.DelegationActive {
		return false
	}
	day := dateOnly(at)
	return !day.Before(dateOnly(d.StartDate)) && !day.After(dateOnly(d.EndDate))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CanApproveDirectly applies the hierarchy table only: the approver's
// role must cover the claimant's role, within the approver's own
// entity or unit where the table is scoped.
func CanApproveDirectly(approver, claimant *entity.User) bool {
	if approvableRole[approver.Role] != claimant.Role {
		return false
	}
	switch approver.Role {
	case entity.RoleEntityManager:
		return claimant.Entity == approver.Entity
	case entity.RoleUnitManager:
		return claimant.Unit == approver.Unit
	case entity.RoleDirector:
		return true
	default:
		return false
	}
}

// canApproveScoped is CanApproveDirectly narrowed by a delegation
// scope: the delegate inherits a subset of the delegator's rights,
// never a superset.
func canApproveScoped(delegator, claimant *entity.User, scope entity.DelegationScope) bool {
	if !CanApproveDirectly(delegator, claimant) {
		return false
	}
	switch scope {
	case entity.ScopeAll:
		return true
	case entity.ScopeEntityOnly:
		return delegator.Entity != "" && claimant.Entity == delegator.Entity
	case entity.ScopeUnitOnly:
		return delegator.Unit != "" && claimant.Unit == delegator.Unit
	default:
		return false
	}
}

// Grant describes why an approver may act on a claim
type Grant struct {
	Via          entity.DecidedVia
	DelegationID string
}

// Authorize determines whether the approver may act on the claim,
// either directly or through a delegation in effect at the given time.
// resolve maps a user ID to the user (delegators arrive as bare
// identifiers on delegations). The first matching grant wins; direct
// authority is preferred over delegated authority.
func Authorize(
	approver *entity.User,
	claimant *entity.User,
	claim *entity.Claim,
	delegations []*entity.Delegation,
	resolve func(id string) *entity.User,
	now time.Time,
) (Grant, bool) {
	if claim.Status != entity.StatusPending {
		return Grant{}, false
	}

	if CanApproveDirectly(approver, claimant) {
		return Grant{Via: entity.ViaDirect}, true
	}

	for _, d := range delegations {
		if d.DelegateID != approver.ID || !InEffect(d, now) {
			continue
		}
		delegator := resolve(d.DelegatorID)
		if delegator == nil {
			continue
		}
		if canApproveScoped(delegator, claimant, d.Scope) {
			return Grant{Via: entity.ViaDelegation, DelegationID: d.ID}, true
		}
	}

	return Grant{}, false
}
