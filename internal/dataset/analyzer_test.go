package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/salesbot/internal/domain"
)

func TestDescribe(t *testing.T) {
	records := []domain.InventoryRecord{
		{ItemName: "Red Pen", Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), Sales: 10, StockLeft: 50, Price: 1.5, Revenue: 15},
		{ItemName: "Red Pen", Date: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), Sales: 20, StockLeft: 30, Price: 1.5, Revenue: 30},
		{ItemName: "Notebook", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Sales: 6, StockLeft: 20, Price: 3, Revenue: 18},
	}

	s := Describe(records)

	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 2, s.UniqueItems)
	assert.Equal(t, [2]string{"2025-06-01", "2025-06-03"}, s.DateRange)

	sales, ok := s.Columns["sales"]
	require.True(t, ok)
	assert.Equal(t, 3, sales.Count)
	assert.InDelta(t, 12.0, sales.Mean, 1e-9)
	assert.Equal(t, 6.0, sales.Min)
	assert.Equal(t, 20.0, sales.Max)
}

func TestDescribeEmpty(t *testing.T) {
	s := Describe(nil)
	assert.Zero(t, s.Rows)
	assert.Empty(t, s.Columns)
}
