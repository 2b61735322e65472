package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/domain/entity"
)

func TestExcelWriter_WriteClaims(t *testing.T) {
	decided := time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC)
	claimant := &entity.User{ID: "u1", FirstName: "Marie", LastName: "Dupont", Entity: "E1", Unit: "U1"}
	approver := &entity.User{ID: "u2", FirstName: "Jean", LastName: "Favre"}

	rows := []ClaimRow{
		{
			Claim: &entity.Claim{
				ID:          "c1",
				Date:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
				Type:        entity.ClaimTypeTravel,
				Subtype:     entity.SubtypeKilometric,
				Description: "Site visit",
				Amount:      60,
				Status:      entity.StatusValidated,
				DecidedAt:   &decided,
				DecidedVia:  entity.ViaDirect,
			},
			Claimant: claimant,
			Approver: approver,
		},
		{
			Claim: &entity.Claim{
				ID:     "c2",
				Date:   time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
				Type:   entity.ClaimTypeMeal,
				Amount: 25.50,
				Status: entity.StatusValidated,
			},
			Claimant: claimant,
		},
	}

	var buf bytes.Buffer
	writer := NewExcelWriter(zap.NewNop())
	require.NoError(t, writer.WriteClaims(rows, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("Claims", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Marie Dupont", name)

	status, err := f.GetCellValue("Claims", "I2")
	require.NoError(t, err)
	assert.Equal(t, "validated", status)

	// Missing approver renders as an empty cell, not a panic
	emptyApprover, err := f.GetCellValue("Claims", "J3")
	require.NoError(t, err)
	assert.Empty(t, emptyApprover)

	total, err := f.GetCellValue("Claims", "H4")
	require.NoError(t, err)
	assert.Equal(t, "85.5", total)
}
