package history

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

const timestampLayout = "2006-01-02 15:04:05"

var csvHeader = []string{
	"timestamp", "success", "order_id", "error",
	"item_code", "item_name", "quantity", "current_stock", "predicted_sales",
}

// CSVStore keeps the order history in a single CSV file: existing rows are
// read back, the new rows appended, and the file rewritten. Original row
// order is preserved.
type CSVStore struct {
	path string
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Append flattens the results and writes existing + new rows.
func (s *CSVStore) Append(results []domain.OrderResult) error {
	newRows := Flatten(results)
	if len(newRows) == 0 {
		return nil
	}

	existing, err := s.Load()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	file, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range append(existing, newRows...) {
		record := []string{
			row.Timestamp.Format(timestampLayout),
			strconv.FormatBool(row.Success),
			row.OrderID,
			row.Error,
			row.ItemCode,
			row.ItemName,
			strconv.Itoa(row.Quantity),
			strconv.FormatFloat(row.CurrentStock, 'f', -1, 64),
			strconv.FormatFloat(row.PredictedSales, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	if err := w.Error(); err != nil {
		return err
	}
	logger.Log.Info().Str("path", s.path).Int("rows", len(newRows)).Msg("order history saved")
	return nil
}

// Load reads the current history; a missing file is an empty history.
func (s *CSVStore) Load() ([]Row, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	// Header first.
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < len(csvHeader) {
			continue
		}

		ts, _ := time.Parse(timestampLayout, record[0])
		success, _ := strconv.ParseBool(record[1])
		qty, _ := strconv.Atoi(record[6])
		stock, _ := strconv.ParseFloat(record[7], 64)
		predicted, _ := strconv.ParseFloat(record[8], 64)

		rows = append(rows, Row{
			Timestamp:      ts,
			Success:        success,
			OrderID:        record[2],
			Error:          record[3],
			ItemCode:       record[4],
			ItemName:       record[5],
			Quantity:       qty,
			CurrentStock:   stock,
			PredictedSales: predicted,
		})
	}

	return rows, nil
}

var _ Store = (*CSVStore)(nil)
