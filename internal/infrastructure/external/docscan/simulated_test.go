package docscan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSimulatedAnalyzer(t *testing.T) {
	analyzer := NewSimulatedAnalyzer(zap.NewNop())

	t.Run("same filename yields the same result", func(t *testing.T) {
		first, err := analyzer.Analyze(context.Background(), "receipt.pdf", []byte("x"))
		require.NoError(t, err)
		second, err := analyzer.Analyze(context.Background(), "receipt.pdf", []byte("y"))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("results carry usable claim fields", func(t *testing.T) {
		result, err := analyzer.Analyze(context.Background(), "cff-ticket.pdf", nil)

		require.NoError(t, err)
		assert.Greater(t, result.Amount, 0.0)
		assert.NotEmpty(t, result.Date)
		assert.True(t, result.Type.IsValid())
		assert.Greater(t, result.Confidence, 0.0)
	})
}
