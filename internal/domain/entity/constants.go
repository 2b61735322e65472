package entity

// Role identifies a user's position in the approval hierarchy
type Role string

const (
	RoleCollaborator  Role = "collaborator"
	RoleEntityManager Role = "entity_manager"
	RoleUnitManager   Role = "unit_manager"
	RoleDirector      Role = "director"
	RoleAdmin         Role = "admin"
)

var validRoles = map[Role]bool{
	RoleCollaborator:  true,
	RoleEntityManager: true,
	RoleUnitManager:   true,
	RoleDirector:      true,
	RoleAdmin:         true,
}

// IsValid returns true if the role is a known role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// IsManager returns true for roles allowed to hold approval authority
func (r Role) IsManager() bool {
	return r == RoleEntityManager || r == RoleUnitManager || r == RoleDirector
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ClaimType categorizes an expense claim
type ClaimType string

const (
	ClaimTypeTravel   ClaimType = "travel"
	ClaimTypeMeal     ClaimType = "meal"
	ClaimTypeLodging  ClaimType = "lodging"
	ClaimTypeSupplies ClaimType = "supplies"
	ClaimTypeTraining ClaimType = "training"
	ClaimTypeMisc     ClaimType = "misc"
)

var validClaimTypes = map[ClaimType]bool{
	ClaimTypeTravel:   true,
	ClaimTypeMeal:     true,
	ClaimTypeLodging:  true,
	ClaimTypeSupplies: true,
	ClaimTypeTraining: true,
	ClaimTypeMisc:     true,
}

// IsValid returns true if the claim type is known
func (t ClaimType) IsValid() bool {
	return validClaimTypes[t]
}

// ClaimSubtype refines a claim type
type ClaimSubtype string

const (
	SubtypeKilometric      ClaimSubtype = "kilometric_allowance"
	SubtypePublicTransport ClaimSubtype = "public_transport"
	SubtypeLunch           ClaimSubtype = "lunch"
	SubtypeDinner          ClaimSubtype = "dinner"
	SubtypeClientMeal      ClaimSubtype = "client_meal"
)

// SubtypesFor returns the admissible subtypes for a claim type.
// Client meals are reserved to manager-tier claimants.
func SubtypesFor(t ClaimType, claimantRole Role) []ClaimSubtype {
	switch t {
	case ClaimTypeTravel:
		return []ClaimSubtype{SubtypeKilometric, SubtypePublicTransport}
	case ClaimTypeMeal:
		if claimantRole.IsManager() {
			return []ClaimSubtype{SubtypeLunch, SubtypeDinner, SubtypeClientMeal}
		}
		return []ClaimSubtype{SubtypeLunch, SubtypeDinner}
	default:
		return nil
	}
}

// ClaimStatus is the lifecycle status of a claim
type ClaimStatus string

const (
	StatusDraft     ClaimStatus = "draft"
	StatusPending   ClaimStatus = "pending"
	StatusValidated ClaimStatus = "validated"
	StatusRejected  ClaimStatus = "rejected"
)

// IsTerminal returns true once no further transition is allowed
func (s ClaimStatus) IsTerminal() bool {
	return s == StatusValidated || s == StatusRejected
}

// History action constants for ValidationStep
type HistoryAction string

const (
	ActionSubmitted HistoryAction = "submitted"
	ActionValidated HistoryAction = "validated"
	ActionRejected  HistoryAction = "rejected"
	ActionModified  HistoryAction = "modified"
)

// DecidedVia records whether a decision was taken by the rightful
// approver or through a delegation
type DecidedVia string

const (
	ViaDirect     DecidedVia = "direct"
	ViaDelegation DecidedVia = "delegation"
)

// DelegationStatus is the stored lifecycle status of a delegation
type DelegationStatus string

const (
	DelegationActive  DelegationStatus = "active"
	DelegationExpired DelegationStatus = "expired"
	DelegationRevoked DelegationStatus = "revoked"
)

// DelegationScope is the subset of the delegator's rights extended
type DelegationScope string

const (
	ScopeAll        DelegationScope = "all"
	ScopeEntityOnly DelegationScope = "entity-only"
	ScopeUnitOnly   DelegationScope = "unit-only"
)

var validScopes = map[DelegationScope]bool{
	ScopeAll:        true,
	ScopeEntityOnly: true,
	ScopeUnitOnly:   true,
}

// IsValid returns true if the scope is known
func (s DelegationScope) IsValid() bool {
	return validScopes[s]
}
