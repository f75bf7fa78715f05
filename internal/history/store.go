package history

import (
	"time"

	"github.com/andresuchdata/salesbot/internal/domain"
)

// Row is one flattened history line: the shared dispatch columns repeated for
// every item of the batch.
type Row struct {
	Timestamp      time.Time `json:"timestamp" db:"ts"`
	Success        bool      `json:"success" db:"success"`
	OrderID        string    `json:"order_id" db:"order_id"`
	Error          string    `json:"error" db:"error"`
	ItemCode       string    `json:"item_code" db:"item_code"`
	ItemName       string    `json:"item_name" db:"item_name"`
	Quantity       int       `json:"quantity" db:"quantity"`
	CurrentStock   float64   `json:"current_stock" db:"current_stock"`
	PredictedSales float64   `json:"predicted_sales" db:"predicted_sales"`
}

// Store is the append-only order history. Rows are never mutated or deleted;
// both successes and failures are recorded.
type Store interface {
	Append(results []domain.OrderResult) error
	Load() ([]Row, error)
}

// Flatten expands dispatch results into history rows, one per item.
func Flatten(results []domain.OrderResult) []Row {
	var rows []Row
	for _, result := range results {
		for _, item := range result.Items {
			rows = append(rows, Row{
				Timestamp:      result.Timestamp,
				Success:        result.Success,
				OrderID:        result.OrderID,
				Error:          result.Error,
				ItemCode:       item.ItemCode,
				ItemName:       item.ItemName,
				Quantity:       item.Quantity,
				CurrentStock:   item.CurrentStock,
				PredictedSales: item.PredictedSales,
			})
		}
	}
	return rows
}

// Summary aggregates the history for reporting.
type Summary struct {
	TotalOrders      int     `json:"total_orders"`
	SuccessfulOrders int     `json:"successful_orders"`
	SuccessRate      float64 `json:"success_rate"`
	TotalItems       int     `json:"total_items"`
	UniqueItems      int     `json:"unique_items"`
	AvgQuantity      float64 `json:"avg_quantity_per_item"`
	TotalQuantity    int     `json:"total_quantity_ordered"`
	DateRangeDays    int     `json:"date_range_days"`
}

// Summarize computes order-level and item-level statistics over history rows.
func Summarize(rows []Row) Summary {
	s := Summary{}
	if len(rows) == 0 {
		return s
	}

	orders := make(map[string]bool)
	items := make(map[string]struct{})
	minTS, maxTS := rows[0].Timestamp, rows[0].Timestamp
	totalQty := 0

	for _, r := range rows {
		key := r.OrderID
		if key == "" {
			// Failed dispatches have no order id; key them by timestamp.
			key = "failed@" + r.Timestamp.Format(time.RFC3339Nano)
		}
		if r.Success {
			orders[key] = true
		} else if _, seen := orders[key]; !seen {
			orders[key] = false
		}
		items[r.ItemName] = struct{}{}
		totalQty += r.Quantity
		if r.Timestamp.Before(minTS) {
			minTS = r.Timestamp
		}
		if r.Timestamp.After(maxTS) {
			maxTS = r.Timestamp
		}
	}

	s.TotalOrders = len(orders)
	for _, ok := range orders {
		if ok {
			s.SuccessfulOrders++
		}
	}
	if s.TotalOrders > 0 {
		s.SuccessRate = 100 * float64(s.SuccessfulOrders) / float64(s.TotalOrders)
	}
	s.TotalItems = len(rows)
	s.UniqueItems = len(items)
	s.TotalQuantity = totalQty
	s.AvgQuantity = float64(totalQty) / float64(len(rows))
	s.DateRangeDays = int(maxTS.Sub(minTS).Hours()/24) + 1

	return s
}
