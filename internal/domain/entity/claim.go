package entity

import "time"

// Claim is an expense reimbursement request ("débours").
// Claimant and approver are referenced by identifier only and resolved
// through the user repository; claims never embed user objects.
type Claim struct {
	ID          string       `json:"id"`
	Date        time.Time    `json:"date"`
	ClaimantID  string       `json:"claimant_id"`
	Type        ClaimType    `json:"type"`
	Subtype     ClaimSubtype `json:"subtype,omitempty"`
	Amount      float64      `json:"amount"`
	Description string       `json:"description"`
	Status      ClaimStatus  `json:"status"`
	Receipts    []string     `json:"receipts"`
	Comment     string       `json:"comment,omitempty"`

	ApproverID     string      `json:"approver_id,omitempty"`
	DecidedAt      *time.Time  `json:"decided_at,omitempty"`
	DecidedVia     DecidedVia  `json:"decided_via,omitempty"`
	DelegationUsed string      `json:"delegation_used,omitempty"`

	// Mission and rule-specific fields
	MissionLocation   *Location `json:"mission_location,omitempty"`
	Kilometers        *float64  `json:"kilometers,omitempty"`
	StartTime         string    `json:"start_time,omitempty"` // "HH:MM"
	EndTime           string    `json:"end_time,omitempty"`   // "HH:MM"
	IsClientMission   bool      `json:"is_client_mission"`
	RespectsAngleRule *bool     `json:"respects_angle_rule,omitempty"`
	DistanceHome      *float64  `json:"distance_home,omitempty"`
	DistanceWorkplace *float64  `json:"distance_workplace,omitempty"`

	// Supply purchases
	SupplyCode   string `json:"supply_code,omitempty"` // CS or ACO reference
	SupplyReason string `json:"supply_reason,omitempty"`

	History []ValidationStep `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsKilometric returns true for kilometric-allowance travel claims
func (c *Claim) IsKilometric() bool {
	return c.Type == ClaimTypeTravel && c.Subtype == SubtypeKilometric
}
