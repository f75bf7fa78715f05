package domain

import "time"

// InventoryRecord is one raw row per item per period. Immutable once ingested.
type InventoryRecord struct {
	ItemID     string    `json:"item_id"`
	ItemName   string    `json:"item_name"`
	Date       time.Time `json:"date"`
	Sales      float64   `json:"sales"`
	StockLeft  float64   `json:"stock_left"`
	TotalStock float64   `json:"total_stock"`
	Price      float64   `json:"price"`
	Revenue    float64   `json:"revenue"`
}

// FeatureRow is an InventoryRecord plus the derived model features.
// After the builder's backfill pass no derived field is ever NaN.
type FeatureRow struct {
	InventoryRecord

	DayOfWeek int `json:"dayofweek"`
	Month     int `json:"month"`
	Quarter   int `json:"quarter"`
	Year      int `json:"year"`
	IsWeekend int `json:"is_weekend"`

	StockRatio float64 `json:"stock_ratio"`
	PriceBin   float64 `json:"price_bin"` // quantile bucket 1..5 over the full price column
	SalesRatio float64 `json:"sales_ratio"`

	SalesMA7d    float64 `json:"sales_ma_7d"`
	SalesMA30d   float64 `json:"sales_ma_30d"`
	RevenueMA7d  float64 `json:"revenue_ma_7d"`
	RevenueMA30d float64 `json:"revenue_ma_30d"`
	StockMA7d    float64 `json:"stock_ma_7d"`
	StockMA30d   float64 `json:"stock_ma_30d"`

	PriceStockRatio float64 `json:"price_stock_ratio"`
	SalesPriceRatio float64 `json:"sales_price_ratio"`

	SalesLag1 float64 `json:"sales_lag1"`
	SalesLag7 float64 `json:"sales_lag7"`
}

// PredictionRow is the latest-period view of one item, the unit the
// automation stage acts on.
type PredictionRow struct {
	ItemID         string    `json:"item_id"`
	ItemName       string    `json:"item_name"`
	ItemCode       string    `json:"item_code"`
	Date           time.Time `json:"date"`
	StockLeft      float64   `json:"stock_left"`
	Sales          float64   `json:"sales"`
	PredictedSales float64   `json:"predicted_sales"`
	Price          float64   `json:"price"`
}

// OrderLine is a single item within a reorder batch.
type OrderLine struct {
	ItemCode       string  `json:"item_code"`
	ItemName       string  `json:"item_name"`
	Quantity       int     `json:"quantity"`
	CurrentStock   float64 `json:"current_stock"`
	PredictedSales float64 `json:"predicted_sales"`
}

// OrderResult records one dispatch attempt covering an entire batch.
type OrderResult struct {
	Timestamp time.Time   `json:"timestamp"`
	Success   bool        `json:"success"`
	OrderID   string      `json:"order_id"`
	Error     string      `json:"error"`
	Items     []OrderLine `json:"items"`
}

// DispatchOutcome is the tagged result of a warehouse submission: either an
// accepted order or a failure reason, never an overloaded string. Success is
// an explicit tag because an accepted order may come back without an id.
type DispatchOutcome struct {
	Success bool
	OrderID string
	Reason  string
	Auth    bool // true when the failure was an authentication rejection
}

func Accepted(orderID string) DispatchOutcome {
	return DispatchOutcome{Success: true, OrderID: orderID}
}

func Rejected(reason string, auth bool) DispatchOutcome {
	return DispatchOutcome{Reason: reason, Auth: auth}
}
