package forecast

import (
	"math"
	"sort"

	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/internal/features"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

// SearchRanges bounds the (p,d,q) grid: p in [0,MaxP), d in [0,MaxD),
// q in [0,MaxQ).
type SearchRanges struct {
	MaxP int
	MaxD int
	MaxQ int
}

// SplitChronological returns the 80/20 train/test partition of rows already
// sorted by date. Time order is an invariant: no shuffling.
func SplitChronological(rows []domain.FeatureRow) (train, test []domain.FeatureRow) {
	cut := int(float64(len(rows)) * 0.8)
	return rows[:cut], rows[cut:]
}

// SortByDate orders feature rows chronologically (stable across equal dates).
func SortByDate(rows []domain.FeatureRow) []domain.FeatureRow {
	out := append([]domain.FeatureRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// FitRows fits a single fixed order over the training slice.
func FitRows(train []domain.FeatureRow, order Order) (*ModelArtifact, error) {
	y := make([]float64, len(train))
	exog := make([][]float64, len(train))
	for i, r := range train {
		y[i] = r.Sales
		exog[i] = features.Vector(r)
	}
	return Fit(y, exog, features.Names(), order)
}

// GridSearch fits every candidate order over the training slice and keeps the
// one minimizing AIC. Candidates that fail to fit are skipped; if none fits a
// ModelError is returned.
func GridSearch(train []domain.FeatureRow, ranges SearchRanges) (*ModelArtifact, error) {
	y := make([]float64, len(train))
	exog := make([][]float64, len(train))
	for i, r := range train {
		y[i] = r.Sales
		exog[i] = features.Vector(r)
	}
	names := features.Names()

	var best *ModelArtifact
	bestAIC := math.Inf(1)
	tried, skipped := 0, 0

	for p := 0; p < ranges.MaxP; p++ {
		for d := 0; d < ranges.MaxD; d++ {
			for q := 0; q < ranges.MaxQ; q++ {
				order := Order{P: p, D: d, Q: q}
				tried++
				artifact, err := Fit(y, exog, names, order)
				if err != nil {
					skipped++
					logger.Log.Debug().Str("order", order.String()).Err(err).Msg("candidate skipped")
					continue
				}
				if artifact.AIC < bestAIC {
					bestAIC = artifact.AIC
					best = artifact
				}
			}
		}
	}

	if best == nil {
		return nil, &domain.ModelError{Reason: "no candidate order converged"}
	}

	logger.Log.Info().
		Str("order", best.Order.String()).
		Float64("aic", best.AIC).
		Int("tried", tried).
		Int("skipped", skipped).
		Msg("order selection complete")

	return best, nil
}
