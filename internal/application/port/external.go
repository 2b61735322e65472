package port

import (
	"context"
	"io"

	"github.com/ge-entretec/debours/internal/domain/entity"
)

// AnalysisResult is the structured extraction returned by the document
// analysis service. It only pre-fills a submission; the values still go
// through ordinary submit validation.
type AnalysisResult struct {
	Amount      float64             `json:"amount"`
	Date        string              `json:"date"` // "YYYY-MM-DD"
	Type        entity.ClaimType    `json:"type"`
	Subtype     entity.ClaimSubtype `json:"subtype,omitempty"`
	Description string              `json:"description"`
	Confidence  float64             `json:"confidence"`
	Suggestions map[string]string   `json:"suggestions,omitempty"`
}

// DocumentAnalyzer extracts claim fields from a scanned receipt
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, filename string, document []byte) (*AnalysisResult, error)
}

// ReceiptStore persists uploaded receipt files and returns a URL
type ReceiptStore interface {
	Store(ctx context.Context, claimID, filename string, content io.Reader) (string, error)
}
