package warehouse

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

// DispatchState tracks where a dispatch call is in its lifecycle:
// NotStarted -> APIAttempt -> {Success | UIFallback} -> {Success | Failure}.
type DispatchState int

const (
	StateNotStarted DispatchState = iota
	StateAPIAttempt
	StateUIFallback
	StateSuccess
	StateFailure
)

func (s DispatchState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateAPIAttempt:
		return "api_attempt"
	case StateUIFallback:
		return "ui_fallback"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// orderAPI is the REST transport the dispatcher tries first.
type orderAPI interface {
	PlaceOrder(ctx context.Context, items []domain.OrderLine) (string, error)
}

// Dispatcher submits one batch per call and produces exactly one OrderResult
// covering the whole batch, whatever the transport did item by item.
type Dispatcher struct {
	api   orderAPI
	ui    UISubmitter // nil disables the fallback path
	state DispatchState
	now   func() time.Time
}

func NewDispatcher(api orderAPI, ui UISubmitter) *Dispatcher {
	return &Dispatcher{
		api:   api,
		ui:    ui,
		state: StateNotStarted,
		now:   time.Now,
	}
}

// State reports the state of the most recent dispatch.
func (d *Dispatcher) State() DispatchState { return d.state }

// Dispatch runs the API-first, UI-fallback submission for the batch. An
// authentication rejection is terminal: the UI path is not attempted. The
// returned OrderResult is recorded whether or not the dispatch succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, items []domain.OrderLine) domain.OrderResult {
	result := domain.OrderResult{
		Timestamp: d.now(),
		Items:     items,
	}

	if len(items) == 0 {
		d.state = StateFailure
		result.Error = "no items to order"
		logger.Log.Warn().Msg("dispatch called with empty batch")
		return result
	}

	d.state = StateAPIAttempt
	outcome := d.tryAPI(ctx, items)

	if !outcome.Success && !outcome.Auth && d.ui != nil {
		d.state = StateUIFallback
		outcome = d.tryUI(ctx, items)
	}

	if outcome.Success {
		d.state = StateSuccess
		result.Success = true
		result.OrderID = outcome.OrderID
		logger.Log.Info().Str("order_id", outcome.OrderID).Int("items", len(items)).Msg("order dispatched")
	} else {
		d.state = StateFailure
		result.Error = outcome.Reason
		logger.Log.Error().Str("reason", outcome.Reason).Msg("order dispatch failed")
	}

	return result
}

func (d *Dispatcher) tryAPI(ctx context.Context, items []domain.OrderLine) domain.DispatchOutcome {
	orderID, err := d.api.PlaceOrder(ctx, items)
	if err == nil {
		return domain.Accepted(orderID)
	}

	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return domain.Rejected(authErr.Error(), true)
	}
	return domain.Rejected(err.Error(), false)
}

func (d *Dispatcher) tryUI(ctx context.Context, items []domain.OrderLine) domain.DispatchOutcome {
	orderID, err := d.ui.SubmitOrder(ctx, items)
	if err != nil {
		return domain.Rejected(err.Error(), false)
	}
	return domain.Accepted(orderID)
}
