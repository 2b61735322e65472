package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ge-entretec/debours/internal/domain/entity"
)

var (
	collabA = &entity.User{ID: "u-collab-a", Role: entity.RoleCollaborator, Entity: "Entity A", Unit: "Unit 1"}
	collabB = &entity.User{ID: "u-collab-b", Role: entity.RoleCollaborator, Entity: "Entity B", Unit: "Unit 1"}
	emA     = &entity.User{ID: "u-em-a", Role: entity.RoleEntityManager, Entity: "Entity A", Unit: "Unit 1"}
	emB     = &entity.User{ID: "u-em-b", Role: entity.RoleEntityManager, Entity: "Entity B", Unit: "Unit 1"}
	um1     = &entity.User{ID: "u-um-1", Role: entity.RoleUnitManager, Unit: "Unit 1"}
	um2     = &entity.User{ID: "u-um-2", Role: entity.RoleUnitManager, Unit: "Unit 2"}
	director = &entity.User{ID: "u-dir", Role: entity.RoleDirector}
	admin    = &entity.User{ID: "u-admin", Role: entity.RoleAdmin}

	users = map[string]*entity.User{
		collabA.ID: collabA, collabB.ID: collabB,
		emA.ID: emA, emB.ID: emB,
		um1.ID: um1, um2.ID: um2,
		director.ID: director, admin.ID: admin,
	}

	now = time.Date(2024, 12, 10, 9, 0, 0, 0, time.UTC)
)

func resolve(id string) *entity.User { return users[id] }

func pendingClaim(claimant *entity.User) *entity.Claim {
	return &entity.Claim{ID: "c-" + claimant.ID, ClaimantID: claimant.ID, Status: entity.StatusPending}
}

func TestCanApproveDirectly(t *testing.T) {
	tests := []struct {
		name     string
		approver *entity.User
		claimant *entity.User
		want     bool
	}{
		{"entity manager over own entity collaborator", emA, collabA, true},
		{"entity manager over other entity collaborator", emA, collabB, false},
		{"entity manager over entity manager", emA, emB, false},
		{"unit manager over entity manager in unit", um1, emA, true},
		{"unit manager over entity manager outside unit", um2, emA, false},
		{"unit manager over collaborator", um1, collabA, false},
		{"director over any unit manager", director, um2, true},
		{"director over collaborator", director, collabA, false},
		{"admin approves nothing", admin, collabA, false},
		{"collaborator approves nothing", collabA, collabB, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanApproveDirectly(tt.approver, tt.claimant))
		})
	}
}

func TestAuthorize_RequiresPendingStatus(t *testing.T) {
	claim := pendingClaim(collabA)
	claim.Status = entity.StatusValidated

	_, ok := Authorize(emA, collabA, claim, nil, resolve, now)
	assert.False(t, ok, "terminal claims are not approvable even with the right role")
}

func TestAuthorize_CrossEntityAlwaysRefused(t *testing.T) {
	_, ok := Authorize(emA, collabB, pendingClaim(collabB), nil, resolve, now)
	assert.False(t, ok)
}

func TestAuthorize_Direct(t *testing.T) {
	grant, ok := Authorize(emA, collabA, pendingClaim(collabA), nil, resolve, now)
	require.True(t, ok)
	assert.Equal(t, entity.ViaDirect, grant.Via)
	assert.Empty(t, grant.DelegationID)
}

func delegation(id string, delegator, delegate *entity.User, scope entity.DelegationScope) *entity.Delegation {
	return &entity.Delegation{
		ID:          id,
		DelegatorID: delegator.ID,
		DelegateID:  delegate.ID,
		StartDate:   now.AddDate(0, 0, -5),
		EndDate:     now.AddDate(0, 0, 5),
		Scope:       scope,
		Status:      entity.DelegationActive,
	}
}

func TestAuthorize_DelegationGrantsDelegatorRights(t *testing.T) {
	// emA delegates to um2, who otherwise has no authority over collabA
	d := delegation("d1", emA, um2, entity.ScopeAll)

	grant, ok := Authorize(um2, collabA, pendingClaim(collabA), []*entity.Delegation{d}, resolve, now)
	require.True(t, ok)
	assert.Equal(t, entity.ViaDelegation, grant.Via)
	assert.Equal(t, "d1", grant.DelegationID)
}

func TestAuthorize_DelegationIsSubsetNeverSuperset(t *testing.T) {
	// Delegating emA's rights does not let the delegate approve
	// claimants emA could not approve
	d := delegation("d1", emA, um2, entity.ScopeAll)

	_, ok := Authorize(um2, collabB, pendingClaim(collabB), []*entity.Delegation{d}, resolve, now)
	assert.False(t, ok)
}

func TestAuthorize_EntityOnlyScope(t *testing.T) {
	d := delegation("d1", emA, director, entity.ScopeEntityOnly)

	// Exactly the delegator's entity-scoped rights
	grant, ok := Authorize(director, collabA, pendingClaim(collabA), []*entity.Delegation{d}, resolve, now)
	require.True(t, ok)
	assert.Equal(t, entity.ViaDelegation, grant.Via)

	_, ok = Authorize(director, collabB, pendingClaim(collabB), []*entity.Delegation{d}, resolve, now)
	assert.False(t, ok, "entity-only scope must not reach another entity")
}

func TestAuthorize_UnitOnlyScope(t *testing.T) {
	d := delegation("d1", um1, emB, entity.ScopeUnitOnly)

	grant, ok := Authorize(emB, emA, pendingClaim(emA), []*entity.Delegation{d}, resolve, now)
	require.True(t, ok)
	assert.Equal(t, "d1", grant.DelegationID)

	outside := &entity.User{ID: "u-em-c", Role: entity.RoleEntityManager, Entity: "Entity C", Unit: "Unit 2"}
	users[outside.ID] = outside
	_, ok = Authorize(emB, outside, pendingClaim(outside), []*entity.Delegation{d}, resolve, now)
	assert.False(t, ok)
}

func TestAuthorize_DirectPreferredOverDelegation(t *testing.T) {
	// emB holds both direct authority over collabB and a delegation
	d := delegation("d1", emA, emB, entity.ScopeAll)

	grant, ok := Authorize(emB, collabB, pendingClaim(collabB), []*entity.Delegation{d}, resolve, now)
	require.True(t, ok)
	assert.Equal(t, entity.ViaDirect, grant.Via)
}

func TestInEffect(t *testing.T) {
	base := delegation("d1", emA, um2, entity.ScopeAll)

	tests := []struct {
		name   string
		mutate func(*entity.Delegation)
		at     time.Time
		want   bool
	}{
		{"within window", func(d *entity.Delegation) {}, now, true},
		{"on start date", func(d *entity.Delegation) { d.StartDate = now }, now, true},
		{"on end date", func(d *entity.Delegation) { d.EndDate = now }, now, true},
		{"before start", func(d *entity.Delegation) {}, now.AddDate(0, 0, -10), false},
		{"after end", func(d *entity.Delegation) {}, now.AddDate(0, 0, 10), false},
		{"revoked", func(d *entity.Delegation) { d.Status = entity.DelegationRevoked }, now, false},
		{"stored expired", func(d *entity.Delegation) { d.Status = entity.DelegationExpired }, now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := *base
			tt.mutate(&d)
			assert.Equal(t, tt.want, InEffect(&d, tt.at))
		})
	}
}

func TestAuthorize_ExpiredDelegationByDateIsUnusable(t *testing.T) {
	// Stored status still active but the end date has passed: the lazy
	// expiry computation must refuse it
	d := delegation("d1", emA, um2, entity.ScopeAll)
	d.EndDate = now.AddDate(0, 0, -1)

	_, ok := Authorize(um2, collabA, pendingClaim(collabA), []*entity.Delegation{d}, resolve, now)
	assert.False(t, ok)
	assert.Equal(t, entity.DelegationExpired, d.DisplayStatus(now))
}
