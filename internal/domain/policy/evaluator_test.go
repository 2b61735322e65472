package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ge-entretec/debours/internal/domain/entity"
)

func ptr[T any](v T) *T { return &v }

func kilometricClaim(km, amount float64) *entity.Claim {
	return &entity.Claim{
		ID:                "c1",
		Date:              time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC),
		Type:              entity.ClaimTypeTravel,
		Subtype:           entity.SubtypeKilometric,
		Amount:            amount,
		Kilometers:        ptr(km),
		RespectsAngleRule: ptr(true),
		MissionLocation:   &entity.Location{Address: "Route de Berne 45, Lausanne", Latitude: 46.55, Longitude: 6.63},
		Receipts:          []string{"receipt.pdf"},
	}
}

func TestEvaluate_KilometricWithinRate(t *testing.T) {
	res := Evaluate(kilometricClaim(100, 60.00), &entity.User{})

	assert.True(t, res.Compliant)
	assert.Empty(t, res.Issues)
	assert.Equal(t, RiskLow, res.Risk)
}

func TestEvaluate_KilometricRateExceeded(t *testing.T) {
	res := Evaluate(kilometricClaim(100, 70.00), &entity.User{})

	assert.False(t, res.Compliant)
	require.Len(t, res.Issues, 1)
	assert.Contains(t, res.Issues[0], "exceeds kilometric rate")
	assert.Contains(t, res.Issues[0], "60.00 CHF max")
}

func TestEvaluate_KilometricMissingFieldsFail(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*entity.Claim)
		issue  string
	}{
		{
			name:   "angle rule flag absent",
			mutate: func(c *entity.Claim) { c.RespectsAngleRule = nil },
			issue:  "angle rule",
		},
		{
			name:   "angle rule violated",
			mutate: func(c *entity.Claim) { c.RespectsAngleRule = ptr(false) },
			issue:  "angle rule",
		},
		{
			name:   "kilometers absent",
			mutate: func(c *entity.Claim) { c.Kilometers = nil },
			issue:  "kilometers driven missing",
		},
		{
			name:   "mission location absent",
			mutate: func(c *entity.Claim) { c.MissionLocation = nil },
			issue:  "mission location missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := kilometricClaim(100, 60.00)
			tt.mutate(claim)

			res := Evaluate(claim, &entity.User{})
			assert.False(t, res.Compliant)
			require.NotEmpty(t, res.Issues)
			assert.Contains(t, res.Issues[0], tt.issue)
		})
	}
}

func TestEvaluate_Lunch(t *testing.T) {
	tests := []struct {
		name          string
		distance      *float64
		amount        float64
		receipts      []string
		wantCompliant bool
		wantWarnings  int
	}{
		{"far enough with receipt", ptr(15.2), 24.50, []string{"r.jpg"}, true, 0},
		{"too close", ptr(8.5), 18.00, []string{"r.jpg"}, false, 0},
		{"distance unknown fails the rule", nil, 18.00, []string{"r.jpg"}, false, 0},
		{"expensive without receipt warns only", ptr(12.8), 25.00, nil, true, 1},
		{"cheap without receipt", ptr(12.8), 19.00, nil, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := &entity.Claim{
				Type:              entity.ClaimTypeMeal,
				Subtype:           entity.SubtypeLunch,
				Amount:            tt.amount,
				DistanceWorkplace: tt.distance,
				Receipts:          tt.receipts,
			}

			res := Evaluate(claim, &entity.User{})
			assert.Equal(t, tt.wantCompliant, res.Compliant)
			assert.Len(t, res.Warnings, tt.wantWarnings)
		})
	}
}

func TestEvaluate_Dinner(t *testing.T) {
	tests := []struct {
		name          string
		start, end    string
		amount        float64
		receipts      []string
		wantIssues    int
		wantWarnings  int
	}{
		{"late long day", "14:30", "20:15", 28.90, []string{"r.jpg"}, 0, 0},
		{"ends before 20:00", "14:30", "19:45", 28.90, []string{"r.jpg"}, 1, 0},
		{"too short", "16:00", "20:30", 28.90, []string{"r.jpg"}, 1, 0},
		{"missing times fail both checks", "", "", 28.90, []string{"r.jpg"}, 2, 0},
		{"expensive without receipt warns", "14:00", "21:00", 32.00, nil, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := &entity.Claim{
				Type:      entity.ClaimTypeMeal,
				Subtype:   entity.SubtypeDinner,
				Amount:    tt.amount,
				StartTime: tt.start,
				EndTime:   tt.end,
				Receipts:  tt.receipts,
			}

			res := Evaluate(claim, &entity.User{})
			assert.Len(t, res.Issues, tt.wantIssues)
			assert.Len(t, res.Warnings, tt.wantWarnings)
			assert.Equal(t, tt.wantIssues == 0, res.Compliant)
		})
	}
}

func TestEvaluate_FixedAllowanceMinimum(t *testing.T) {
	cadre := &entity.User{Role: entity.RoleUnitManager, HasFixedAllowance: true}

	claim := &entity.Claim{Type: entity.ClaimTypeMisc, Amount: 40.00, Receipts: []string{"r.pdf"}}
	res := Evaluate(claim, cadre)
	assert.False(t, res.Compliant)
	require.Len(t, res.Issues, 1)
	assert.Contains(t, res.Issues[0], "50 CHF minimum")

	claim.IsClientMission = true
	res = Evaluate(claim, cadre)
	assert.True(t, res.Compliant, "client missions are exempt from the minimum")

	claim.IsClientMission = false
	claim.Amount = 50.00
	res = Evaluate(claim, cadre)
	assert.True(t, res.Compliant)
}

func TestEvaluate_IsPure(t *testing.T) {
	claim := kilometricClaim(100, 70.00)
	claimant := &entity.User{HasFixedAllowance: true}

	first := Evaluate(claim, claimant)
	second := Evaluate(claim, claimant)
	assert.Equal(t, first, second)
}

func TestEvaluate_RiskLevels(t *testing.T) {
	lunch := &entity.Claim{
		Type:              entity.ClaimTypeMeal,
		Subtype:           entity.SubtypeLunch,
		Amount:            25.00,
		DistanceWorkplace: ptr(15.0),
	}
	res := Evaluate(lunch, &entity.User{})
	assert.Equal(t, RiskMedium, res.Risk, "warnings only")

	lunch.DistanceWorkplace = ptr(5.0)
	res = Evaluate(lunch, &entity.User{})
	assert.Equal(t, RiskHigh, res.Risk, "issues dominate")
}

func TestReceiptRequired(t *testing.T) {
	employee := &entity.User{Role: entity.RoleCollaborator}
	cadre := &entity.User{Role: entity.RoleDirector, HasFixedAllowance: true}

	tests := []struct {
		name     string
		claim    *entity.Claim
		claimant *entity.User
		want     bool
	}{
		{"cadre always needs a receipt", &entity.Claim{Type: entity.ClaimTypeMeal, Subtype: entity.SubtypeLunch, Amount: 10}, cadre, true},
		{"supplies always need a receipt", &entity.Claim{Type: entity.ClaimTypeSupplies, Amount: 5}, employee, true},
		{"cheap lunch exempt", &entity.Claim{Type: entity.ClaimTypeMeal, Subtype: entity.SubtypeLunch, Amount: 20}, employee, false},
		{"expensive lunch not exempt", &entity.Claim{Type: entity.ClaimTypeMeal, Subtype: entity.SubtypeLunch, Amount: 20.01}, employee, true},
		{"cheap dinner exempt", &entity.Claim{Type: entity.ClaimTypeMeal, Subtype: entity.SubtypeDinner, Amount: 30}, employee, false},
		{"in-rate kilometric exempt", kilometricClaim(100, 60), employee, false},
		{"over-rate kilometric not exempt", kilometricClaim(100, 61), employee, true},
		{"misc needs a receipt", &entity.Claim{Type: entity.ClaimTypeMisc, Amount: 12}, employee, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReceiptRequired(tt.claim, tt.claimant))
		})
	}
}
