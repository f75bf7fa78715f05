package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/salesbot/internal/domain"
)

func sampleResult(orderID string, ts time.Time) domain.OrderResult {
	return domain.OrderResult{
		Timestamp: ts,
		Success:   orderID != "",
		OrderID:   orderID,
		Error: func() string {
			if orderID == "" {
				return "transport error during place order: timeout"
			}
			return ""
		}(),
		Items: []domain.OrderLine{
			{ItemCode: "RED_PEN", ItemName: "Red Pen", Quantity: 75, CurrentStock: 9, PredictedSales: 300},
			{ItemCode: "NOTEBOOK", ItemName: "Notebook", Quantity: 10, CurrentStock: 2, PredictedSales: 12},
		},
	}
}

func TestCSVStoreAppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	store := NewCSVStore(path)

	ts := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append([]domain.OrderResult{sampleResult("ORD-1", ts)}))

	rows, err := store.Load()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ORD-1", rows[0].OrderID)
	assert.Equal(t, "RED_PEN", rows[0].ItemCode)
	assert.Equal(t, 75, rows[0].Quantity)
	assert.True(t, rows[0].Success)
	assert.Equal(t, ts, rows[0].Timestamp)
}

func TestCSVStoreAppendPreservesExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	store := NewCSVStore(path)

	first := sampleResult("ORD-1", time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC))
	second := sampleResult("", time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC))

	require.NoError(t, store.Append([]domain.OrderResult{first}))
	require.NoError(t, store.Append([]domain.OrderResult{second}))

	rows, err := store.Load()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Union of both batches, oldest first.
	assert.Equal(t, "ORD-1", rows[0].OrderID)
	assert.Equal(t, "ORD-1", rows[1].OrderID)
	assert.False(t, rows[2].Success)
	assert.Equal(t, "transport error during place order: timeout", rows[2].Error)
}

func TestCSVStoreLoadMissingFile(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "nope.csv"))

	rows, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCSVStoreAppendNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	store := NewCSVStore(path)

	require.NoError(t, store.Append(nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "empty append must not create the file")
}

func TestFlatten(t *testing.T) {
	rows := Flatten([]domain.OrderResult{
		sampleResult("ORD-1", time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)),
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "Red Pen", rows[0].ItemName)
	assert.Equal(t, "Notebook", rows[1].ItemName)
}

func TestSummarize(t *testing.T) {
	var results []domain.OrderResult
	results = append(results, sampleResult("ORD-1", time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)))
	results = append(results, sampleResult("ORD-2", time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC)))
	results = append(results, sampleResult("", time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC)))

	s := Summarize(Flatten(results))

	assert.Equal(t, 3, s.TotalOrders)
	assert.Equal(t, 2, s.SuccessfulOrders)
	assert.InDelta(t, 66.67, s.SuccessRate, 0.01)
	assert.Equal(t, 6, s.TotalItems)
	assert.Equal(t, 2, s.UniqueItems)
	assert.Equal(t, (75+10)*3, s.TotalQuantity)
	assert.Equal(t, 3, s.DateRangeDays)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalOrders)
	assert.Zero(t, s.SuccessRate)
}
