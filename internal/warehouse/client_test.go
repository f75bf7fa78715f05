package warehouse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/salesbot/internal/config"
	"github.com/andresuchdata/salesbot/internal/domain"
)

func testClient(url string, attempts int) *APIClient {
	c := NewAPIClient(config.WarehouseConfig{
		BaseURL:       url,
		OrderEndpoint: "/api/orders",
		TimeoutSec:    5,
		RetryAttempts: attempts,
		APIKey:        "test-key",
	})
	c.backoffBase = time.Millisecond
	return c
}

func testBatch() []domain.OrderLine {
	return []domain.OrderLine{
		{ItemCode: "RED_PEN", ItemName: "Red Pen", Quantity: 75, CurrentStock: 9, PredictedSales: 300},
	}
}

func TestPlaceOrderSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload orderPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Len(t, payload.Items, 1)
		assert.Equal(t, "normal", payload.Priority)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(orderResponse{OrderID: "ORD-1001"})
	}))
	defer srv.Close()

	orderID, err := testClient(srv.URL, 3).PlaceOrder(context.Background(), testBatch())
	require.NoError(t, err)
	assert.Equal(t, "ORD-1001", orderID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPlaceOrderRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(orderResponse{OrderID: "ORD-1002"})
	}))
	defer srv.Close()

	orderID, err := testClient(srv.URL, 3).PlaceOrder(context.Background(), testBatch())
	require.NoError(t, err)
	assert.Equal(t, "ORD-1002", orderID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPlaceOrderAuthErrorIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 3).PlaceOrder(context.Background(), testBatch())

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 401, authErr.StatusCode)
	assert.Equal(t, "Authentication failed: 401", err.Error())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "auth rejection must not be retried")
}

func TestPlaceOrderExhaustedAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 3).PlaceOrder(context.Background(), testBatch())

	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPlaceOrderTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := testClient(srv.URL, 2).PlaceOrder(context.Background(), testBatch())

	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestPlaceOrderHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := testClient(srv.URL, 3)
	client.backoffBase = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.PlaceOrder(ctx, testBatch())
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("PlaceOrder did not return after cancellation")
	}
}
