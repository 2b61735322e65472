// Package policy implements the compliance rule engine for expense
// claims. Evaluation is pure: the same claim and claimant always yield
// the same verdict, and no I/O happens here.
package policy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ge-entretec/debours/internal/domain/entity"
)

const (
	// KilometricRate is the reimbursable rate per kilometer, in CHF.
	KilometricRate = 0.60

	// LunchReceiptThreshold and DinnerReceiptThreshold are the amounts
	// above which a meal without receipts raises a warning, in CHF.
	LunchReceiptThreshold  = 20.0
	DinnerReceiptThreshold = 30.0

	// FixedAllowanceMinimum is the minimum claim amount for claimants
	// on a fixed allowance, unless the claim is a client mission.
	FixedAllowanceMinimum = 50.0

	// LunchMinDistanceKm is the required distance between workplace and
	// meal location for a lunch claim.
	LunchMinDistanceKm = 10.0

	// DinnerEndHour is the hour the working day must reach for a dinner
	// claim (end time >= 20:00).
	DinnerEndHour = 20

	// DinnerMinWorkHours is the minimum worked duration for a dinner claim.
	DinnerMinWorkHours = 5.0
)

// RiskLevel grades a verdict for operator attention
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Result is the verdict of evaluating one claim
type Result struct {
	Compliant bool      `json:"compliant"`
	Issues    []string  `json:"issues"`
	Warnings  []string  `json:"warnings"`
	Risk      RiskLevel `json:"risk"`
}

// Evaluate checks a claim against the reimbursement policy. Issues make
// the claim non-compliant; warnings are surfaced for attention only.
// A rule whose input field is absent fails the rule, it is not skipped.
func Evaluate(claim *entity.Claim, claimant *entity.User) Result {
	var issues, warnings []string

	if claim.IsKilometric() {
		if claim.RespectsAngleRule == nil || !*claim.RespectsAngleRule {
			issues = append(issues, "does not respect the angle rule (>90° required)")
		}
		if claim.Kilometers == nil {
			issues = append(issues, "kilometers driven missing for kilometric allowance")
		} else if claim.Amount > *claim.Kilometers*KilometricRate {
			issues = append(issues, fmt.Sprintf("amount exceeds kilometric rate (%.2f CHF max)", *claim.Kilometers*KilometricRate))
		}
		if claim.MissionLocation == nil {
			issues = append(issues, "mission location missing")
		}
	}

	if claim.Type == entity.ClaimTypeMeal {
		switch claim.Subtype {
		case entity.SubtypeLunch:
			if claim.DistanceWorkplace == nil || *claim.DistanceWorkplace <= LunchMinDistanceKm {
				issues = append(issues, fmt.Sprintf("insufficient distance from workplace (>%.0f km required)", LunchMinDistanceKm))
			}
			if claim.Amount > LunchReceiptThreshold && len(claim.Receipts) == 0 {
				warnings = append(warnings, fmt.Sprintf("receipt missing for amount above %.0f CHF", LunchReceiptThreshold))
			}
		case entity.SubtypeDinner:
			end, endOK := parseClock(claim.EndTime)
			if !endOK || end < DinnerEndHour*60 {
				issues = append(issues, fmt.Sprintf("working day does not reach %d:00", DinnerEndHour))
			}
			start, startOK := parseClock(claim.StartTime)
			if !startOK || !endOK || float64(end-start)/60.0 < DinnerMinWorkHours {
				issues = append(issues, fmt.Sprintf("insufficient work duration (<%.0fh)", DinnerMinWorkHours))
			}
			if claim.Amount > DinnerReceiptThreshold && len(claim.Receipts) == 0 {
				warnings = append(warnings, fmt.Sprintf("receipt missing for amount above %.0f CHF", DinnerReceiptThreshold))
			}
		}
	}

	if claimant != nil && claimant.HasFixedAllowance &&
		claim.Amount < FixedAllowanceMinimum && !claim.IsClientMission {
		issues = append(issues, fmt.Sprintf("amount below %.0f CHF minimum for fixed-allowance claimant (client missions excepted)", FixedAllowanceMinimum))
	}

	return Result{
		Compliant: len(issues) == 0,
		Issues:    issues,
		Warnings:  warnings,
		Risk:      riskFor(issues, warnings),
	}
}

// ReceiptRequired derives whether a submission must carry a receipt.
// Fixed-allowance claimants always need one; supply purchases always
// need one; small meals and in-rate kilometric claims are exempt.
func ReceiptRequired(claim *entity.Claim, claimant *entity.User) bool {
	if claimant != nil && claimant.HasFixedAllowance {
		return true
	}
	if claim.Type == entity.ClaimTypeSupplies {
		return true
	}
	if claim.Type == entity.ClaimTypeMeal {
		if claim.Subtype == entity.SubtypeLunch && claim.Amount <= LunchReceiptThreshold {
			return false
		}
		if claim.Subtype == entity.SubtypeDinner && claim.Amount <= DinnerReceiptThreshold {
			return false
		}
	}
	if claim.IsKilometric() && claim.Kilometers != nil &&
		claim.Amount <= *claim.Kilometers*KilometricRate {
		return false
	}
	return true
}

func riskFor(issues, warnings []string) RiskLevel {
	switch {
	case len(issues) > 0:
		return RiskHigh
	case len(warnings) > 0:
		return RiskMedium
	default:
		return RiskLow
	}
}

// parseClock parses "HH:MM" into minutes since midnight
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
