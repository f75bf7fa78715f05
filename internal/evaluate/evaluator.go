package evaluate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/internal/features"
	"github.com/andresuchdata/salesbot/internal/forecast"
)

// metricsWindow is how many of the trailing test points accuracy metrics are
// computed over.
const metricsWindow = 30

// AccuracyMetrics holds forecast error metrics over the trailing test window.
// MAPE excludes zero-actual points; it is NaN when every actual is zero.
type AccuracyMetrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	MAPE float64 `json:"mape"`
	N    int     `json:"n"`
}

// FeatureImportance ranks one feature by absolute Pearson correlation with
// the target.
type FeatureImportance struct {
	Feature     string  `json:"feature"`
	Correlation float64 `json:"correlation"`
}

// EvaluationContext is the immutable result accumulator: every step returns a
// new context rather than mutating shared state.
type EvaluationContext struct {
	ADF         *ADFResult
	Metrics     *AccuracyMetrics
	Importance  []FeatureImportance
	Predictions []domain.PredictionRow
}

// NewContext returns an empty evaluation context.
func NewContext() EvaluationContext {
	return EvaluationContext{}
}

// WithStationarity runs the ADF test over the raw target series and returns a
// context carrying the result.
func (c EvaluationContext) WithStationarity(series []float64) (EvaluationContext, error) {
	res, err := ADFTest(series)
	if err != nil {
		return c, err
	}
	c.ADF = res
	return c, nil
}

// WithAccuracy computes RMSE, MAE and MAPE over the last 30 test points.
func (c EvaluationContext) WithAccuracy(actual []float64, predicted []float64) EvaluationContext {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}
	start := n - metricsWindow
	if start < 0 {
		start = 0
	}

	var sqSum, absSum, pctSum float64
	pctN := 0
	count := 0
	for i := start; i < n; i++ {
		diff := actual[i] - predicted[i]
		sqSum += diff * diff
		absSum += math.Abs(diff)
		if actual[i] != 0 {
			pctSum += math.Abs(diff / actual[i])
			pctN++
		}
		count++
	}

	m := &AccuracyMetrics{N: count}
	if count > 0 {
		m.RMSE = math.Sqrt(sqSum / float64(count))
		m.MAE = absSum / float64(count)
	}
	if pctN > 0 {
		m.MAPE = 100 * pctSum / float64(pctN)
	} else {
		m.MAPE = math.NaN()
	}
	c.Metrics = m
	return c
}

// WithImportance ranks every feature by |Pearson r| against the target over
// the full dataset, descending.
func (c EvaluationContext) WithImportance(rows []domain.FeatureRow) EvaluationContext {
	names := features.Names()
	target := make([]float64, len(rows))
	for i, r := range rows {
		target[i] = r.Sales
	}

	ranked := make([]FeatureImportance, 0, len(names))
	column := make([]float64, len(rows))
	for idx, name := range names {
		for i, r := range rows {
			column[i] = features.Vector(r)[idx]
		}
		r := stat.Correlation(column, target, nil)
		if math.IsNaN(r) {
			r = 0
		}
		ranked = append(ranked, FeatureImportance{Feature: name, Correlation: math.Abs(r)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Correlation > ranked[j].Correlation
	})
	c.Importance = ranked
	return c
}

// WithPredictions attaches the canonical latest-per-item prediction set.
func (c EvaluationContext) WithPredictions(rows []domain.PredictionRow) EvaluationContext {
	c.Predictions = rows
	return c
}

// BuildPredictionTable joins forecasts back onto the date-sorted rows and
// extracts the most recent row per item. testStart is the index where the
// test slice begins; preds[i] corresponds to sorted[testStart+i]. Items whose
// latest row predates the test slice get the repair heuristic of
// sales x 1.1 instead of a model forecast. Stale multi-period rows never
// survive: exactly one row per item, the max-date one.
func BuildPredictionTable(sorted []domain.FeatureRow, testStart int, preds []forecast.Prediction) []domain.PredictionRow {
	type candidate struct {
		row      domain.FeatureRow
		forecast float64
		hasModel bool
	}
	latest := make(map[string]candidate)
	for i, r := range sorted {
		cur, seen := latest[r.ItemID]
		if seen && !r.Date.After(cur.row.Date) {
			continue
		}
		c := candidate{row: r}
		if pi := i - testStart; pi >= 0 && pi < len(preds) {
			c.forecast = preds[pi].Point
			c.hasModel = true
		}
		latest[r.ItemID] = c
	}

	out := make([]domain.PredictionRow, 0, len(latest))
	for _, c := range latest {
		predicted := c.forecast
		if !c.hasModel {
			predicted = c.row.Sales * 1.1
		}
		out = append(out, domain.PredictionRow{
			ItemID:         c.row.ItemID,
			ItemName:       c.row.ItemName,
			ItemCode:       domain.ItemCode(c.row.ItemName),
			Date:           c.row.Date,
			StockLeft:      c.row.StockLeft,
			Sales:          c.row.Sales,
			PredictedSales: predicted,
			Price:          c.row.Price,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemName < out[j].ItemName })
	return out
}
