package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/andresuchdata/salesbot/internal/domain"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// processedHeader is the column order of the processed feature table.
var processedHeader = []string{
	"Item Name", "Date", "Sales", "Stock Left", "Total Stock", "Price", "Revenue",
	"dayofweek", "month", "quarter", "year", "is_weekend",
	"stock_ratio", "price_bin", "sales_ratio",
	"sales_ma_7d", "sales_ma_30d", "revenue_ma_7d", "revenue_ma_30d",
	"stock_ma_7d", "stock_ma_30d",
	"price_stock_ratio", "sales_price_ratio",
	"sales_lag1", "sales_lag7",
}

// WriteProcessed overwrites the processed feature CSV.
func WriteProcessed(path string, rows []domain.FeatureRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write(processedHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.ItemName,
			r.Date.Format("2006-01-02"),
			formatFloat(r.Sales),
			formatFloat(r.StockLeft),
			formatFloat(r.TotalStock),
			formatFloat(r.Price),
			formatFloat(r.Revenue),
			strconv.Itoa(r.DayOfWeek),
			strconv.Itoa(r.Month),
			strconv.Itoa(r.Quarter),
			strconv.Itoa(r.Year),
			strconv.Itoa(r.IsWeekend),
			formatFloat(r.StockRatio),
			formatFloat(r.PriceBin),
			formatFloat(r.SalesRatio),
			formatFloat(r.SalesMA7d),
			formatFloat(r.SalesMA30d),
			formatFloat(r.RevenueMA7d),
			formatFloat(r.RevenueMA30d),
			formatFloat(r.StockMA7d),
			formatFloat(r.StockMA30d),
			formatFloat(r.PriceStockRatio),
			formatFloat(r.SalesPriceRatio),
			formatFloat(r.SalesLag1),
			formatFloat(r.SalesLag7),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}

// WritePredictions overwrites the predictions CSV used as the automation
// stage's crash-recovery fallback.
func WritePredictions(path string, rows []domain.PredictionRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{"Item Name", "Item Code", "Date", "Stock Left", "Sales", "Predicted Sales", "Price"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.ItemName,
			r.ItemCode,
			r.Date.Format("2006-01-02"),
			formatFloat(r.StockLeft),
			formatFloat(r.Sales),
			formatFloat(r.PredictedSales),
			formatFloat(r.Price),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}
