package docscan

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/domain/entity"
)

// VisionAnalyzer implements port.DocumentAnalyzer using an OpenAI
// vision model
type VisionAnalyzer struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewVisionAnalyzer creates a new vision-based document analyzer
func NewVisionAnalyzer(apiKey, model string, temperature float32, logger *zap.Logger) *VisionAnalyzer {
	return &VisionAnalyzer{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// extractedReceipt mirrors the JSON shape requested from the model
type extractedReceipt struct {
	Amount       float64  `json:"amount"`
	Date         string   `json:"date"`
	Category     string   `json:"category"`
	Subcategory  string   `json:"subcategory"`
	Description  string   `json:"description"`
	Confidence   float64  `json:"confidence"`
	Alternatives []string `json:"alternatives"`
}

// Analyze rasterizes the document and asks the vision model for the
// claim fields. The result only pre-fills a submission form.
func (a *VisionAnalyzer) Analyze(ctx context.Context, filename string, document []byte) (*port.AnalysisResult, error) {
	a.logger.Info("Analyzing document", zap.String("filename", filename), zap.Int("size_bytes", len(document)))

	images, err := rasterize(filename, document)
	if err != nil {
		a.logger.Error("Failed to rasterize document", zap.String("filename", filename), zap.Error(err))
		return nil, fmt.Errorf("failed to rasterize document: %w", err)
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: visionPrompt,
	}}
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(img)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   1024,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert at reading Swiss expense receipts in French, German and Italian. Amounts are in CHF. Always respond with valid JSON.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		a.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from vision API")
	}

	var extracted extractedReceipt
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &extracted); err != nil {
		a.logger.Error("Failed to parse vision response", zap.Error(err), zap.String("content", content))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := &port.AnalysisResult{
		Amount:      extracted.Amount,
		Date:        extracted.Date,
		Type:        entity.ClaimType(extracted.Category),
		Subtype:     entity.ClaimSubtype(extracted.Subcategory),
		Description: extracted.Description,
		Confidence:  extracted.Confidence,
	}
	if len(extracted.Alternatives) > 0 {
		result.Suggestions = map[string]string{}
		for i, alt := range extracted.Alternatives {
			result.Suggestions[fmt.Sprintf("description_%d", i+1)] = alt
		}
	}

	a.logger.Info("Document analyzed",
		zap.String("filename", filename),
		zap.Float64("amount", result.Amount),
		zap.String("type", string(result.Type)),
		zap.Float64("confidence", result.Confidence))
	return result, nil
}

const visionPrompt = `Examine this expense receipt and extract the claim fields.

Return a JSON object with this exact structure:
{
  "amount": number (total amount in CHF),
  "date": "YYYY-MM-DD",
  "category": one of "travel", "meal", "lodging", "supplies", "training", "misc",
  "subcategory": one of "kilometric_allowance", "public_transport", "lunch", "dinner", "client_meal", or "" when none applies,
  "description": short label naming the merchant and purpose,
  "confidence": number between 0.0 and 1.0,
  "alternatives": [up to 2 alternative descriptions]
}

Rules:
- Extract exactly what you see. Do not guess missing values.
- Use 0 or "" for fields that are not readable.
- A restaurant receipt before 18:00 is a "lunch", after 18:00 a "dinner".
- Train, bus and taxi tickets are "travel" with subcategory "public_transport".`

// Verify interface compliance
var _ port.DocumentAnalyzer = (*VisionAnalyzer)(nil)
