package dataset

import (
	"math"

	"github.com/andresuchdata/salesbot/internal/domain"
)

// ColumnStats summarizes one numeric column.
type ColumnStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Summary describes a loaded inventory dataset for the dashboard API.
type Summary struct {
	Rows        int                    `json:"rows"`
	UniqueItems int                    `json:"unique_items"`
	DateRange   [2]string              `json:"date_range"`
	Columns     map[string]ColumnStats `json:"columns"`
}

// Describe computes per-column summary statistics over the dataset.
func Describe(records []domain.InventoryRecord) Summary {
	s := Summary{Columns: make(map[string]ColumnStats)}
	if len(records) == 0 {
		return s
	}

	s.Rows = len(records)
	items := make(map[string]struct{})
	minDate, maxDate := records[0].Date, records[0].Date

	cols := map[string]func(domain.InventoryRecord) float64{
		"sales":      func(r domain.InventoryRecord) float64 { return r.Sales },
		"stock_left": func(r domain.InventoryRecord) float64 { return r.StockLeft },
		"price":      func(r domain.InventoryRecord) float64 { return r.Price },
		"revenue":    func(r domain.InventoryRecord) float64 { return r.Revenue },
	}

	for name, get := range cols {
		st := ColumnStats{Min: math.Inf(1), Max: math.Inf(-1)}
		sum := 0.0
		for _, r := range records {
			v := get(r)
			sum += v
			st.Min = math.Min(st.Min, v)
			st.Max = math.Max(st.Max, v)
			st.Count++
		}
		st.Mean = sum / float64(st.Count)
		s.Columns[name] = st
	}

	for _, r := range records {
		items[r.ItemName] = struct{}{}
		if r.Date.Before(minDate) {
			minDate = r.Date
		}
		if r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}
	s.UniqueItems = len(items)
	s.DateRange = [2]string{minDate.Format("2006-01-02"), maxDate.Format("2006-01-02")}

	return s
}
