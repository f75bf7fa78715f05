package reorder

import (
	"math"

	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

const (
	// safetyBuffer is added on top of the lead-time demand.
	safetyBuffer = 5
	// minOrderQty is the floor order size.
	minOrderQty = 10
	// predictionPeriodDays is the horizon the predicted sales figure covers.
	predictionPeriodDays = 30
)

// Policy converts prediction rows into order lines. It is a pure function of
// its inputs: no randomness, no external calls.
type Policy struct {
	MinThreshold float64
	MaxDelayDays int
}

func NewPolicy(minThreshold float64, maxDelayDays int) *Policy {
	return &Policy{MinThreshold: minThreshold, MaxDelayDays: maxDelayDays}
}

// Decide returns the items needing reorder. Items are skipped while
// stock_left is strictly above the threshold; stock exactly at the threshold
// is ordered. Quantity covers the lead-time window at the predicted daily
// rate plus a buffer, never below the floor order size.
func (p *Policy) Decide(rows []domain.PredictionRow) []domain.OrderLine {
	if len(rows) == 0 {
		logger.Log.Warn().Msg("inventory data is empty")
		return nil
	}

	var lines []domain.OrderLine
	for _, row := range rows {
		if row.StockLeft > p.MinThreshold {
			continue
		}

		predicted := row.PredictedSales
		if math.IsNaN(predicted) || predicted < 0 {
			predicted = 0
		}

		dailyRate := predicted / predictionPeriodDays
		quantity := int(math.Floor(dailyRate*float64(p.MaxDelayDays))) + safetyBuffer
		if quantity < minOrderQty {
			quantity = minOrderQty
		}

		code := row.ItemCode
		if code == "" {
			code = domain.ItemCode(row.ItemName)
		}

		lines = append(lines, domain.OrderLine{
			ItemCode:       code,
			ItemName:       row.ItemName,
			Quantity:       quantity,
			CurrentStock:   row.StockLeft,
			PredictedSales: predicted,
		})
	}

	logger.Log.Info().Int("items", len(lines)).Msg("reorder decision complete")
	return lines
}
