package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/salesbot/internal/domain"
)

type stubAPI struct {
	orderID string
	err     error
	calls   int
}

func (s *stubAPI) PlaceOrder(_ context.Context, _ []domain.OrderLine) (string, error) {
	s.calls++
	return s.orderID, s.err
}

type stubUI struct {
	orderID string
	err     error
	calls   int
}

func (s *stubUI) SubmitOrder(_ context.Context, _ []domain.OrderLine) (string, error) {
	s.calls++
	return s.orderID, s.err
}

func fixedNow() time.Time {
	return time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)
}

func TestDispatchAPISuccess(t *testing.T) {
	api := &stubAPI{orderID: "ORD-1"}
	ui := &stubUI{}
	d := NewDispatcher(api, ui)
	d.now = fixedNow

	result := d.Dispatch(context.Background(), testBatch())

	assert.True(t, result.Success)
	assert.Equal(t, "ORD-1", result.OrderID)
	assert.Equal(t, fixedNow(), result.Timestamp)
	assert.Equal(t, StateSuccess, d.State())
	assert.Equal(t, 1, api.calls)
	assert.Equal(t, 0, ui.calls, "UI must not run when the API succeeds")
}

func TestDispatchAcceptedWithoutOrderID(t *testing.T) {
	api := &stubAPI{orderID: ""}
	ui := &stubUI{orderID: "UI-4473"}
	d := NewDispatcher(api, ui)

	result := d.Dispatch(context.Background(), testBatch())

	assert.True(t, result.Success)
	assert.Empty(t, result.OrderID)
	assert.Empty(t, result.Error)
	assert.Equal(t, StateSuccess, d.State())
	assert.Equal(t, 0, ui.calls, "an accepted order with no id must not be resubmitted through the UI")
}

func TestDispatchFallsBackToUI(t *testing.T) {
	api := &stubAPI{err: &domain.TransportError{Op: "place order", Err: errors.New("connection refused")}}
	ui := &stubUI{orderID: "UI-4471"}
	d := NewDispatcher(api, ui)

	result := d.Dispatch(context.Background(), testBatch())

	assert.True(t, result.Success)
	assert.Equal(t, "UI-4471", result.OrderID)
	assert.Equal(t, StateSuccess, d.State())
	assert.Equal(t, 1, ui.calls)
}

func TestDispatchAuthErrorSkipsUI(t *testing.T) {
	api := &stubAPI{err: &domain.AuthError{StatusCode: 401}}
	ui := &stubUI{orderID: "UI-4472"}
	d := NewDispatcher(api, ui)

	result := d.Dispatch(context.Background(), testBatch())

	assert.False(t, result.Success)
	assert.Equal(t, "Authentication failed: 401", result.Error)
	assert.Equal(t, StateFailure, d.State())
	assert.Equal(t, 0, ui.calls, "auth rejection must not trigger the UI fallback")
}

func TestDispatchBothPathsFail(t *testing.T) {
	api := &stubAPI{err: &domain.TransportError{Op: "place order", Err: errors.New("timeout")}}
	ui := &stubUI{err: errors.New("login form not found")}
	d := NewDispatcher(api, ui)

	result := d.Dispatch(context.Background(), testBatch())

	assert.False(t, result.Success)
	assert.Equal(t, "login form not found", result.Error)
	assert.Equal(t, StateFailure, d.State())
}

func TestDispatchWithoutUIFallback(t *testing.T) {
	api := &stubAPI{err: &domain.TransportError{Op: "place order", Err: errors.New("timeout")}}
	d := NewDispatcher(api, nil)

	result := d.Dispatch(context.Background(), testBatch())

	assert.False(t, result.Success)
	assert.Equal(t, StateFailure, d.State())
}

func TestDispatchEmptyBatch(t *testing.T) {
	api := &stubAPI{orderID: "ORD-1"}
	ui := &stubUI{}
	d := NewDispatcher(api, ui)

	result := d.Dispatch(context.Background(), nil)

	assert.False(t, result.Success)
	assert.Equal(t, "no items to order", result.Error)
	assert.Equal(t, 0, api.calls)
	assert.Equal(t, 0, ui.calls)
}

func TestDispatchResultCoversWholeBatch(t *testing.T) {
	batch := []domain.OrderLine{
		{ItemCode: "A", ItemName: "A", Quantity: 10},
		{ItemCode: "B", ItemName: "B", Quantity: 75},
	}
	d := NewDispatcher(&stubAPI{orderID: "ORD-2"}, nil)

	result := d.Dispatch(context.Background(), batch)

	require.True(t, result.Success)
	assert.Equal(t, batch, result.Items)
}

func TestDispatchStateString(t *testing.T) {
	assert.Equal(t, "not_started", StateNotStarted.String())
	assert.Equal(t, "ui_fallback", StateUIFallback.String())
	assert.Equal(t, "unknown", DispatchState(99).String())
}
