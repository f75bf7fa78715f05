package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/andresuchdata/salesbot/internal/domain"
)

// rollingWindows are the trailing-mean windows applied per item.
var rollingWindows = []int{7, 30}

// Builder derives calendar, ratio, rolling and lag features from raw
// inventory records. It carries no state between calls.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build computes the full feature table. Input must be ordered by item then
// date (the dataset loader guarantees this). The returned rows contain no NaN
// values: lag gaps at the start of each item series are backward-filled.
func (b *Builder) Build(records []domain.InventoryRecord) ([]domain.FeatureRow, error) {
	if len(records) == 0 {
		return nil, &domain.DataError{Stage: "features", Reason: "empty input"}
	}

	binEdges := priceBinEdges(records)

	rows := make([]domain.FeatureRow, len(records))
	for i, rec := range records {
		row := domain.FeatureRow{InventoryRecord: rec}

		// Calendar features, pandas day-of-week convention (Monday=0).
		row.DayOfWeek = (int(rec.Date.Weekday()) + 6) % 7
		row.Month = int(rec.Date.Month())
		row.Quarter = (int(rec.Date.Month())-1)/3 + 1
		row.Year = rec.Date.Year()
		if row.DayOfWeek == 5 || row.DayOfWeek == 6 {
			row.IsWeekend = 1
		}

		row.StockRatio = safeDiv(rec.StockLeft, rec.TotalStock)
		row.SalesRatio = safeDiv(rec.Sales, rec.TotalStock)
		row.PriceBin = assignBin(rec.Price, binEdges)
		row.PriceStockRatio = rec.Price * row.StockRatio
		row.SalesPriceRatio = rec.Sales * rec.Price

		row.SalesLag1 = math.NaN()
		row.SalesLag7 = math.NaN()

		rows[i] = row
	}

	// Per-item rolling means and lags. Rolling windows are causal: only the
	// current and earlier rows of the same item contribute.
	forEachItemGroup(rows, func(group []domain.FeatureRow) {
		for i := range group {
			for _, w := range rollingWindows {
				start := i - w + 1
				if start < 0 {
					start = 0
				}
				var sales, revenue, stock float64
				n := float64(i - start + 1)
				for j := start; j <= i; j++ {
					sales += group[j].Sales
					revenue += group[j].Revenue
					stock += group[j].StockLeft
				}
				switch w {
				case 7:
					group[i].SalesMA7d = sales / n
					group[i].RevenueMA7d = revenue / n
					group[i].StockMA7d = stock / n
				case 30:
					group[i].SalesMA30d = sales / n
					group[i].RevenueMA30d = revenue / n
					group[i].StockMA30d = stock / n
				}
			}
			if i >= 1 {
				group[i].SalesLag1 = group[i-1].Sales
			}
			if i >= 7 {
				group[i].SalesLag7 = group[i-7].Sales
			}
		}
	})

	backfill(rows)

	return rows, nil
}

// priceBinEdges computes the four interior quantile edges (q20..q80) over the
// entire price column. Edges are computed once and reused for every row.
func priceBinEdges(records []domain.InventoryRecord) [4]float64 {
	prices := make([]float64, len(records))
	for i, r := range records {
		prices[i] = r.Price
	}
	sort.Float64s(prices)

	var edges [4]float64
	for i, q := range []float64{0.2, 0.4, 0.6, 0.8} {
		edges[i] = stat.Quantile(q, stat.LinInterp, prices, nil)
	}
	return edges
}

// assignBin maps a price onto buckets 1..5 using half-open intervals
// (edge_{k-1}, edge_k], matching quantile-cut semantics. Duplicate edges
// collapse ties into the lower bucket, so the result is always in 1..5.
func assignBin(price float64, edges [4]float64) float64 {
	bin := 1.0
	for _, e := range edges {
		if price > e {
			bin++
		}
	}
	return bin
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// forEachItemGroup invokes fn over each contiguous run of rows sharing an
// item id. Rows are assumed sorted by item.
func forEachItemGroup(rows []domain.FeatureRow, fn func(group []domain.FeatureRow)) {
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].ItemID != rows[start].ItemID {
			fn(rows[start:i])
			start = i
		}
	}
}

// backfill replaces NaN lag values with the next valid value in row order,
// then zero for any column with no later valid value. This is the deliberate
// edge policy: no feature row is emitted with a null.
func backfill(rows []domain.FeatureRow) {
	fillColumn(rows,
		func(r *domain.FeatureRow) float64 { return r.SalesLag1 },
		func(r *domain.FeatureRow, v float64) { r.SalesLag1 = v })
	fillColumn(rows,
		func(r *domain.FeatureRow) float64 { return r.SalesLag7 },
		func(r *domain.FeatureRow, v float64) { r.SalesLag7 = v })
}

func fillColumn(rows []domain.FeatureRow, get func(*domain.FeatureRow) float64, set func(*domain.FeatureRow, float64)) {
	next := 0.0
	haveNext := false
	for i := len(rows) - 1; i >= 0; i-- {
		v := get(&rows[i])
		if math.IsNaN(v) {
			if haveNext {
				set(&rows[i], next)
			} else {
				set(&rows[i], 0)
			}
		} else {
			next = v
			haveNext = true
		}
	}
}

// CountInvalid returns how many derived fields across all rows are NaN or
// infinite. Zero after Build is an invariant the tests pin down.
func CountInvalid(rows []domain.FeatureRow) int {
	bad := 0
	for _, r := range rows {
		for _, v := range []float64{
			r.StockRatio, r.PriceBin, r.SalesRatio,
			r.SalesMA7d, r.SalesMA30d, r.RevenueMA7d, r.RevenueMA30d,
			r.StockMA7d, r.StockMA30d,
			r.PriceStockRatio, r.SalesPriceRatio,
			r.SalesLag1, r.SalesLag7,
		} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				bad++
			}
		}
	}
	return bad
}

// Names returns the exogenous feature column names in their canonical order.
// The trained model records exactly this set.
func Names() []string {
	return []string{
		"dayofweek", "month", "quarter", "year", "is_weekend",
		"stock_ratio", "price_bin", "sales_ratio",
		"sales_ma_7d", "sales_ma_30d", "revenue_ma_7d", "revenue_ma_30d",
		"stock_ma_7d", "stock_ma_30d",
		"price_stock_ratio", "sales_price_ratio",
		"sales_lag1", "sales_lag7",
	}
}

// Vector maps a feature row to the exogenous regressor vector in the order
// given by Names.
func Vector(r domain.FeatureRow) []float64 {
	return []float64{
		float64(r.DayOfWeek), float64(r.Month), float64(r.Quarter), float64(r.Year), float64(r.IsWeekend),
		r.StockRatio, r.PriceBin, r.SalesRatio,
		r.SalesMA7d, r.SalesMA30d, r.RevenueMA7d, r.RevenueMA30d,
		r.StockMA7d, r.StockMA30d,
		r.PriceStockRatio, r.SalesPriceRatio,
		r.SalesLag1, r.SalesLag7,
	}
}
