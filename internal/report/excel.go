package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/domain/entity"
)

// ClaimRow pairs a claim with its resolved claimant and approver names
// for the export
type ClaimRow struct {
	Claim    *entity.Claim
	Claimant *entity.User
	Approver *entity.User
}

// ExcelWriter renders claim exports as xlsx workbooks
type ExcelWriter struct {
	logger *zap.Logger
}

// NewExcelWriter creates a new Excel report writer
func NewExcelWriter(logger *zap.Logger) *ExcelWriter {
	return &ExcelWriter{logger: logger}
}

var headers = []string{
	"Date", "Claimant", "Entity", "Unit", "Type", "Subtype",
	"Description", "Amount (CHF)", "Status", "Approver", "Decided At", "Via",
}

// WriteClaims writes one row per claim to a single-sheet workbook
func (w *ExcelWriter) WriteClaims(rows []ClaimRow, out io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Claims"
	f.SetSheetName("Sheet1", sheet)

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute header cell: %w", err)
		}
		w.setCell(f, sheet, cell, h)
	}

	var total float64
	for i, row := range rows {
		claim := row.Claim
		values := []interface{}{
			claim.Date.Format("2006-01-02"),
			displayName(row.Claimant),
			claimantField(row.Claimant, func(u *entity.User) string { return u.Entity }),
			claimantField(row.Claimant, func(u *entity.User) string { return u.Unit }),
			string(claim.Type),
			string(claim.Subtype),
			claim.Description,
			claim.Amount,
			string(claim.Status),
			displayName(row.Approver),
			decidedAt(claim),
			string(claim.DecidedVia),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("failed to compute cell: %w", err)
			}
			w.setCell(f, sheet, cell, v)
		}
		total += claim.Amount
	}

	// Total line under the table
	totalRow := len(rows) + 2
	labelCell, _ := excelize.CoordinatesToCellName(7, totalRow)
	amountCell, _ := excelize.CoordinatesToCellName(8, totalRow)
	w.setCell(f, sheet, labelCell, "Total")
	w.setCell(f, sheet, amountCell, total)

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Info("Claims report written", zap.Int("rows", len(rows)), zap.Float64("total", total))
	return nil
}

func (w *ExcelWriter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func displayName(u *entity.User) string {
	if u == nil {
		return ""
	}
	return u.FullName()
}

func claimantField(u *entity.User, f func(*entity.User) string) string {
	if u == nil {
		return ""
	}
	return f(u)
}

func decidedAt(claim *entity.Claim) string {
	if claim.DecidedAt == nil {
		return ""
	}
	return claim.DecidedAt.Format("2006-01-02 15:04")
}
