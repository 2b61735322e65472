package docscan

import (
	"context"
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/domain/entity"
)

// SimulatedAnalyzer implements port.DocumentAnalyzer without calling
// any external service. The fixture is picked deterministically from
// the filename so repeated uploads of the same document agree.
type SimulatedAnalyzer struct {
	logger *zap.Logger
}

// NewSimulatedAnalyzer creates an offline document analyzer
func NewSimulatedAnalyzer(logger *zap.Logger) *SimulatedAnalyzer {
	return &SimulatedAnalyzer{logger: logger}
}

var simulatedResults = []port.AnalysisResult{
	{
		Amount:      45.80,
		Date:        "2024-12-05",
		Type:        entity.ClaimTypeMeal,
		Subtype:     entity.SubtypeLunch,
		Description: "Restaurant Le Gourmet - Repas client",
		Confidence:  0.92,
		Suggestions: map[string]string{
			"description_1": "Restaurant Le Gourmet",
			"description_2": "Repas d'affaires client",
		},
	},
	{
		Amount:      125.50,
		Date:        "2024-12-04",
		Type:        entity.ClaimTypeTravel,
		Subtype:     entity.SubtypePublicTransport,
		Description: "Billet CFF Lausanne-Zurich",
		Confidence:  0.98,
		Suggestions: map[string]string{
			"description_1": "Transport CFF Lausanne-Zurich",
			"description_2": "Billet de train",
		},
	},
	{
		Amount:      72.60,
		Date:        "2024-12-03",
		Type:        entity.ClaimTypeTravel,
		Subtype:     entity.SubtypeKilometric,
		Description: "Déplacement véhicule personnel - 121 km",
		Confidence:  0.85,
		Suggestions: map[string]string{
			"description_1": "Déplacement professionnel",
			"description_2": "Frais kilométriques",
		},
	},
	{
		Amount:      28.90,
		Date:        "2024-12-02",
		Type:        entity.ClaimTypeMeal,
		Subtype:     entity.SubtypeDinner,
		Description: "Café Central - Repas tardif",
		Confidence:  0.89,
		Suggestions: map[string]string{
			"description_1": "Repas de travail tardif",
			"description_2": "Dîner professionnel",
		},
	},
	{
		Amount:      89.20,
		Date:        "2024-12-01",
		Type:        entity.ClaimTypeTravel,
		Subtype:     entity.SubtypePublicTransport,
		Description: "Taxi aéroport - Mission urgente",
		Confidence:  0.76,
		Suggestions: map[string]string{
			"description_1": "Transport taxi",
			"description_2": "Frais de déplacement urgent",
		},
	},
}

// Analyze returns a fixture result keyed on the filename
func (a *SimulatedAnalyzer) Analyze(ctx context.Context, filename string, document []byte) (*port.AnalysisResult, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(filename))
	result := simulatedResults[int(h.Sum32())%len(simulatedResults)]

	a.logger.Info("Simulated document analysis",
		zap.String("filename", filename),
		zap.String("type", string(result.Type)),
		zap.Float64("confidence", result.Confidence))
	return &result, nil
}

// Verify interface compliance
var _ port.DocumentAnalyzer = (*SimulatedAnalyzer)(nil)
