package reorder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/salesbot/internal/domain"
)

func TestDecideThresholdBoundary(t *testing.T) {
	policy := NewPolicy(10, 7)

	rows := []domain.PredictionRow{
		{ItemName: "Above", ItemCode: "ABOVE", StockLeft: 11, PredictedSales: 300},
		{ItemName: "At", ItemCode: "AT", StockLeft: 10, PredictedSales: 300},
		{ItemName: "Below", ItemCode: "BELOW", StockLeft: 9, PredictedSales: 300},
	}

	lines := policy.Decide(rows)
	require.Len(t, lines, 2)
	assert.Equal(t, "AT", lines[0].ItemCode)
	assert.Equal(t, "BELOW", lines[1].ItemCode)
}

func TestDecideQuantityFormula(t *testing.T) {
	policy := NewPolicy(10, 7)

	// 300 predicted over 30 days is 10/day; 7 lead days -> 70 + 5 buffer.
	lines := policy.Decide([]domain.PredictionRow{
		{ItemName: "Pen", ItemCode: "PEN", StockLeft: 9, PredictedSales: 300},
	})
	require.Len(t, lines, 1)
	assert.Equal(t, 75, lines[0].Quantity)
}

func TestDecideMinimumOrderQuantity(t *testing.T) {
	policy := NewPolicy(10, 7)

	lines := policy.Decide([]domain.PredictionRow{
		{ItemName: "Slow", ItemCode: "SLOW", StockLeft: 2, PredictedSales: 3},
	})
	require.Len(t, lines, 1)
	assert.Equal(t, 10, lines[0].Quantity)
}

func TestDecideInvalidPredictions(t *testing.T) {
	policy := NewPolicy(10, 7)

	lines := policy.Decide([]domain.PredictionRow{
		{ItemName: "NaN", ItemCode: "NAN", StockLeft: 1, PredictedSales: math.NaN()},
		{ItemName: "Neg", ItemCode: "NEG", StockLeft: 1, PredictedSales: -50},
	})
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, 10, line.Quantity)
		assert.Equal(t, 0.0, line.PredictedSales)
	}
}

func TestDecideDerivesMissingItemCode(t *testing.T) {
	policy := NewPolicy(10, 7)

	lines := policy.Decide([]domain.PredictionRow{
		{ItemName: "Red Pen", StockLeft: 5, PredictedSales: 60},
	})
	require.Len(t, lines, 1)
	assert.Equal(t, "RED_PEN", lines[0].ItemCode)
}

func TestDecideEmptyInput(t *testing.T) {
	policy := NewPolicy(10, 7)
	assert.Nil(t, policy.Decide(nil))
}

func TestDecideIsDeterministic(t *testing.T) {
	policy := NewPolicy(10, 7)
	rows := []domain.PredictionRow{
		{ItemName: "A", ItemCode: "A", StockLeft: 3, PredictedSales: 120},
		{ItemName: "B", ItemCode: "B", StockLeft: 8, PredictedSales: 45},
	}

	first := policy.Decide(rows)
	second := policy.Decide(rows)
	assert.Equal(t, first, second)
}
