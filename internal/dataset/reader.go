package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"01/02/2006",
	time.RFC3339,
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// headerIndex resolves columns by normalized name over a CSV header.
type headerIndex struct {
	header []string
}

func (h headerIndex) col(names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, v := range h.header {
		if _, ok := targets[normalizeColumnName(v)]; ok {
			return i
		}
	}
	return -1
}

func getField(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseFloatField coerces a CSV field to float64; garbage becomes 0 rather
// than an error.
func parseFloatField(record []string, idx int) float64 {
	v := getField(record, idx)
	if v == "" {
		return 0
	}
	v = strings.ReplaceAll(v, ",", "")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseDateField(record []string, idx int) (time.Time, bool) {
	v := getField(record, idx)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LoadInventory reads the raw inventory CSV into InventoryRecords ordered by
// item then date. Rows with an unparseable date are dropped with a warning.
// Missing Revenue is synthesized as Sales x Price; missing Stock Left falls
// back to Total Stock.
func LoadInventory(path, dateColumn string) ([]domain.InventoryRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &domain.DataError{Stage: "load", Reason: "cannot open " + path + ": " + err.Error()}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &domain.DataError{Stage: "load", Reason: "cannot read header: " + err.Error()}
	}
	h := headerIndex{header: header}

	idxName := h.col("item name", "nama", "product name")
	idxDate := h.col(dateColumn, "date")
	idxSales := h.col("sales")
	idxStockLeft := h.col("stock left")
	idxTotalStock := h.col("total stock")
	idxPrice := h.col("price", "harga")
	idxRevenue := h.col("revenue")

	if idxName < 0 || idxDate < 0 || idxSales < 0 {
		return nil, &domain.DataError{Stage: "load", Reason: "required columns missing (Item Name, " + dateColumn + ", Sales)"}
	}
	if idxStockLeft < 0 && idxTotalStock < 0 {
		return nil, &domain.DataError{Stage: "load", Reason: "required columns missing (Stock Left or Total Stock)"}
	}

	var records []domain.InventoryRecord
	dropped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.DataError{Stage: "load", Reason: "csv read failed: " + err.Error()}
		}

		name := getField(record, idxName)
		if name == "" {
			dropped++
			continue
		}
		date, ok := parseDateField(record, idxDate)
		if !ok {
			dropped++
			continue
		}

		sales := parseFloatField(record, idxSales)
		price := parseFloatField(record, idxPrice)
		stockLeft := parseFloatField(record, idxStockLeft)
		totalStock := parseFloatField(record, idxTotalStock)
		if idxStockLeft < 0 {
			stockLeft = totalStock
		}
		if idxTotalStock < 0 {
			totalStock = stockLeft
		}
		revenue := parseFloatField(record, idxRevenue)
		if idxRevenue < 0 {
			revenue = sales * price
		}

		records = append(records, domain.InventoryRecord{
			ItemID:     domain.ItemCode(name),
			ItemName:   name,
			Date:       date,
			Sales:      sales,
			StockLeft:  stockLeft,
			TotalStock: totalStock,
			Price:      price,
			Revenue:    revenue,
		})
	}

	if dropped > 0 {
		logger.Log.Warn().Int("rows", dropped).Str("path", path).Msg("dropped rows with missing name or date")
	}
	if len(records) == 0 {
		return nil, &domain.DataError{Stage: "load", Reason: "no usable rows in " + path}
	}

	// Stable item/date ordering is an invariant downstream.
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ItemID != records[j].ItemID {
			return records[i].ItemID < records[j].ItemID
		}
		return records[i].Date.Before(records[j].Date)
	})

	return records, nil
}

// LoadPredictions reads the predictions CSV, repairing missing columns where
// a heuristic exists: Item Code from Item Name, Stock Left from Total Stock,
// Predicted Sales as Sales x 1.1. An unrepairable table yields an empty
// result and a DataError so the caller can degrade instead of aborting.
func LoadPredictions(path string) ([]domain.PredictionRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &domain.DataError{Stage: "predictions", Reason: "cannot open " + path + ": " + err.Error()}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &domain.DataError{Stage: "predictions", Reason: "cannot read header: " + err.Error()}
	}
	h := headerIndex{header: header}

	idxName := h.col("item name")
	idxCode := h.col("item code")
	idxStockLeft := h.col("stock left")
	idxTotalStock := h.col("total stock")
	idxSales := h.col("sales")
	idxPredicted := h.col("predicted sales")
	idxPrice := h.col("price")
	idxDate := h.col("date")

	if idxName < 0 {
		return nil, &domain.DataError{Stage: "predictions", Reason: "cannot repair missing column Item Name"}
	}
	if idxStockLeft < 0 && idxTotalStock < 0 {
		return nil, &domain.DataError{Stage: "predictions", Reason: "cannot repair missing column Stock Left"}
	}
	if idxCode < 0 {
		logger.Log.Info().Msg("generating Item Code from Item Name")
	}
	if idxPredicted < 0 {
		if idxSales < 0 {
			return nil, &domain.DataError{Stage: "predictions", Reason: "cannot repair missing column Predicted Sales"}
		}
		logger.Log.Info().Msg("using Sales as Predicted Sales")
	}

	var rows []domain.PredictionRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.DataError{Stage: "predictions", Reason: "csv read failed: " + err.Error()}
		}

		name := getField(record, idxName)
		if name == "" {
			continue
		}
		code := getField(record, idxCode)
		if code == "" {
			code = domain.ItemCode(name)
		}
		stockLeft := parseFloatField(record, idxStockLeft)
		if idxStockLeft < 0 {
			stockLeft = parseFloatField(record, idxTotalStock)
		}
		sales := parseFloatField(record, idxSales)
		predicted := parseFloatField(record, idxPredicted)
		if idxPredicted < 0 {
			predicted = sales * 1.1
		}
		date, _ := parseDateField(record, idxDate)

		rows = append(rows, domain.PredictionRow{
			ItemID:         code,
			ItemName:       name,
			ItemCode:       code,
			Date:           date,
			StockLeft:      stockLeft,
			Sales:          sales,
			PredictedSales: predicted,
			Price:          parseFloatField(record, idxPrice),
		})
	}

	return rows, nil
}
