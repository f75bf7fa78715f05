package forecast

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/internal/features"
)

// syntheticSeries is an AR(1)-ish demand curve with a weekly rhythm, long
// enough for every grid candidate to fit.
func syntheticSeries(n int) ([]float64, [][]float64) {
	names := features.Names()
	y := make([]float64, n)
	exog := make([][]float64, n)
	level := 50.0
	seed := uint64(1)
	for i := 0; i < n; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		noise := float64(seed%100)/50 - 1
		level = 0.8*level + 10 + 3*math.Sin(2*math.Pi*float64(i)/7) + noise
		y[i] = level

		vec := make([]float64, len(names))
		vec[0] = float64(i % 7) // dayofweek
		vec[len(vec)-1] = 0
		if i > 0 {
			vec[len(vec)-2] = y[i-1] // sales_lag1
		}
		exog[i] = vec
	}
	return y, exog
}

func syntheticRows(n int) []domain.FeatureRow {
	base := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	y, _ := syntheticSeries(n)
	rows := make([]domain.FeatureRow, n)
	for i := 0; i < n; i++ {
		rows[i] = domain.FeatureRow{
			InventoryRecord: domain.InventoryRecord{
				ItemID:   "PEN",
				ItemName: "Pen",
				Date:     base.AddDate(0, 0, i),
				Sales:    y[i],
			},
			DayOfWeek: i % 7,
		}
		if i > 0 {
			rows[i].SalesLag1 = y[i-1]
		}
	}
	return rows
}

func TestFitProducesFiniteModel(t *testing.T) {
	y, exog := syntheticSeries(120)

	artifact, err := Fit(y, exog, features.Names(), Order{P: 1, D: 1, Q: 1})
	require.NoError(t, err)

	assert.False(t, math.IsNaN(artifact.AIC))
	assert.False(t, math.IsInf(artifact.AIC, 0))
	assert.Positive(t, artifact.Sigma)
	assert.Len(t, artifact.Coeffs.AR, 1)
	assert.Len(t, artifact.Coeffs.MA, 1)
	assert.Len(t, artifact.Coeffs.Exog, len(features.Names()))
	assert.Equal(t, "Sales", artifact.Target)
}

func TestFitSeriesTooShort(t *testing.T) {
	y, exog := syntheticSeries(8)
	_, err := Fit(y, exog, features.Names(), Order{P: 2, D: 1, Q: 2})

	var modelErr *domain.ModelError
	require.ErrorAs(t, err, &modelErr)
}

func TestFitLengthMismatch(t *testing.T) {
	y, exog := syntheticSeries(50)
	_, err := Fit(y[:40], exog, features.Names(), Order{P: 1})

	var modelErr *domain.ModelError
	require.ErrorAs(t, err, &modelErr)
}

func TestForecastReturnsOnePredictionPerRow(t *testing.T) {
	rows := syntheticRows(150)
	y, exog := syntheticSeries(150)

	artifact, err := Fit(y[:120], exog[:120], features.Names(), Order{P: 1, D: 0, Q: 1})
	require.NoError(t, err)

	preds, err := NewTrainedArimaForecaster(artifact).Forecast(rows[120:])
	require.NoError(t, err)
	require.Len(t, preds, 30)

	for _, p := range preds {
		assert.False(t, math.IsNaN(p.Point))
		assert.GreaterOrEqual(t, p.Point, 0.0)
		require.True(t, p.HasInterval)
		assert.LessOrEqual(t, p.Lower, p.Point)
		assert.GreaterOrEqual(t, p.Upper, p.Point)
	}

	// Interval width grows with the horizon.
	first := preds[0].Upper - preds[0].Lower
	last := preds[len(preds)-1].Upper - preds[len(preds)-1].Lower
	assert.Greater(t, last, first)
}

func TestForecastDoesNotMutateArtifact(t *testing.T) {
	y, exog := syntheticSeries(120)
	artifact, err := Fit(y, exog, features.Names(), Order{P: 1, D: 1, Q: 1})
	require.NoError(t, err)

	tailW := append([]float64(nil), artifact.TailW...)
	tailY := append([]float64(nil), artifact.TailY...)

	f := NewTrainedArimaForecaster(artifact)
	_, err = f.Forecast(syntheticRows(10))
	require.NoError(t, err)

	assert.Equal(t, tailW, artifact.TailW)
	assert.Equal(t, tailY, artifact.TailY)
}

func TestForecastMissingFeatures(t *testing.T) {
	artifact := &ModelArtifact{
		Order:    Order{P: 1},
		Features: []string{"sales_lag1", "moon_phase"},
		Coeffs:   Coefficients{AR: []float64{0.5}, Exog: []float64{0.1, 0.2}},
		Sigma:    1,
	}

	_, err := NewTrainedArimaForecaster(artifact).Forecast(syntheticRows(5))

	var modelErr *domain.ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Contains(t, err.Error(), "moon_phase")
}

func TestGridSearchPicksLowestAIC(t *testing.T) {
	rows := syntheticRows(150)

	artifact, err := GridSearch(rows, SearchRanges{MaxP: 3, MaxD: 2, MaxQ: 3})
	require.NoError(t, err)

	assert.Less(t, artifact.Order.P, 3)
	assert.Less(t, artifact.Order.D, 2)
	assert.Less(t, artifact.Order.Q, 3)
	assert.False(t, math.IsNaN(artifact.AIC))
}

func TestGridSearchTooLittleData(t *testing.T) {
	_, err := GridSearch(syntheticRows(3), SearchRanges{MaxP: 3, MaxD: 2, MaxQ: 3})

	var modelErr *domain.ModelError
	require.ErrorAs(t, err, &modelErr)
}

func TestArtifactSaveLoadRoundTrip(t *testing.T) {
	y, exog := syntheticSeries(120)
	artifact, err := Fit(y, exog, features.Names(), Order{P: 2, D: 1, Q: 0})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "models", "sales_arima.json")
	require.NoError(t, artifact.Save(path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, artifact.Order, loaded.Order)
	assert.Equal(t, artifact.Features, loaded.Features)
	assert.InDelta(t, artifact.AIC, loaded.AIC, 1e-9)
	assert.Equal(t, artifact.Coeffs.AR, loaded.Coeffs.AR)
}

func TestLoadForecasterFallsBackToNaive(t *testing.T) {
	f := LoadForecaster(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, "naive_last_value", f.Name())

	rows := syntheticRows(5)
	preds, err := f.Forecast(rows)
	require.NoError(t, err)
	require.Len(t, preds, 5)
	assert.Equal(t, rows[3].SalesLag1, preds[3].Point)
}

func TestSplitChronological(t *testing.T) {
	rows := syntheticRows(10)
	train, test := SplitChronological(rows)

	assert.Len(t, train, 8)
	assert.Len(t, test, 2)
	assert.True(t, train[len(train)-1].Date.Before(test[0].Date))
}
