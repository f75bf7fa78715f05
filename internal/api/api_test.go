package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/salesbot/internal/config"
	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/internal/history"
	"github.com/andresuchdata/salesbot/internal/service"
	"github.com/andresuchdata/salesbot/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T) (*gin.Engine, *config.Config, history.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Data: config.DataConfig{
			InputPath:       filepath.Join(dir, "inventory.csv"),
			PredictionsPath: filepath.Join(dir, "predictions.csv"),
			HistoryPath:     filepath.Join(dir, "orders.csv"),
			DateColumn:      "Date",
		},
	}
	store := history.NewCSVStore(cfg.Data.HistoryPath)
	dashService := service.NewDashboardService(cfg, store, nil, nil)
	return NewRouter(&Services{Dashboard: dashService}, nil), cfg, store
}

type stubObjectStorage struct {
	objects []storage.ObjectInfo
}

func (s *stubObjectStorage) UploadObject(_ context.Context, _, _ string) error   { return nil }
func (s *stubObjectStorage) DownloadObject(_ context.Context, _, _ string) error { return nil }

func (s *stubObjectStorage) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	out := make([]storage.ObjectInfo, 0, len(s.objects))
	for _, obj := range s.objects {
		if strings.HasPrefix(obj.Key, prefix) {
			out = append(out, obj)
		}
	}
	return out, nil
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := testRouter(t)

	w := doGet(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetPredictions(t *testing.T) {
	router, cfg, _ := testRouter(t)
	csv := `Item Name, Item Code, Date, Stock Left, Sales, Predicted Sales, Price
Red Pen,RED_PEN,2025-06-30,9,280,300,1.5
`
	require.NoError(t, os.WriteFile(cfg.Data.PredictionsPath, []byte(csv), 0o644))

	w := doGet(router, "/api/v1/predictions")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count       int                    `json:"count"`
		Predictions []domain.PredictionRow `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Predictions, 1)
	assert.Equal(t, "RED_PEN", body.Predictions[0].ItemCode)
}

func TestGetPredictionsMissingFile(t *testing.T) {
	router, _, _ := testRouter(t)

	w := doGet(router, "/api/v1/predictions")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrderHistoryAndSummary(t *testing.T) {
	router, _, store := testRouter(t)
	require.NoError(t, store.Append([]domain.OrderResult{{
		Timestamp: time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		Success:   true,
		OrderID:   "ORD-1",
		Items: []domain.OrderLine{
			{ItemCode: "RED_PEN", ItemName: "Red Pen", Quantity: 75, CurrentStock: 9, PredictedSales: 300},
		},
	}}))

	w := doGet(router, "/api/v1/orders/history")
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		Count  int           `json:"count"`
		Orders []history.Row `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Equal(t, 1, hist.Count)

	w = doGet(router, "/api/v1/orders/summary")
	require.Equal(t, http.StatusOK, w.Code)
	var summary history.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.TotalOrders)
	assert.Equal(t, 1, summary.SuccessfulOrders)
}

func TestGetOrderHistoryEmpty(t *testing.T) {
	router, _, _ := testRouter(t)

	w := doGet(router, "/api/v1/orders/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestGetModels(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Data: config.DataConfig{HistoryPath: filepath.Join(dir, "orders.csv")}}
	store := history.NewCSVStore(cfg.Data.HistoryPath)
	objStore := &stubObjectStorage{objects: []storage.ObjectInfo{
		{Key: "models/sales_arima.json", Size: 2048},
		{Key: "exports/predictions.csv", Size: 512},
	}}
	dashService := service.NewDashboardService(cfg, store, nil, objStore)
	router := NewRouter(&Services{Dashboard: dashService}, nil)

	w := doGet(router, "/api/v1/models")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count  int                  `json:"count"`
		Models []storage.ObjectInfo `json:"models"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Models, 1)
	assert.Equal(t, "models/sales_arima.json", body.Models[0].Key)
}

func TestGetModelsWithoutStorage(t *testing.T) {
	router, _, _ := testRouter(t)

	w := doGet(router, "/api/v1/models")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0,"models":[]}`, w.Body.String())
}

func TestDescribeData(t *testing.T) {
	router, cfg, _ := testRouter(t)
	csv := `Item Name,Date,Sales,Stock Left,Total Stock,Price
Red Pen,2025-06-02,10,50,100,1.5
Notebook,2025-06-02,4,20,60,3
`
	require.NoError(t, os.WriteFile(cfg.Data.InputPath, []byte(csv), 0o644))

	w := doGet(router, "/api/v1/data/describe")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Rows        int `json:"rows"`
		UniqueItems int `json:"unique_items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Rows)
	assert.Equal(t, 2, body.UniqueItems)
}
