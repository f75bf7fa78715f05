package warehouse

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/andresuchdata/salesbot/internal/config"
	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

// orderPayload is the JSON body the fulfillment endpoint expects.
type orderPayload struct {
	Items     []domain.OrderLine `json:"items"`
	OrderDate string             `json:"order_date"`
	Priority  string             `json:"priority"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
}

// APIClient submits order batches to the warehouse REST endpoint with
// bounded retries and exponential backoff. 401/403 responses are terminal.
type APIClient struct {
	http          *resty.Client
	endpoint      string
	retryAttempts int
	backoffBase   time.Duration
}

// NewAPIClient builds a client from the warehouse config.
func NewAPIClient(cfg config.WarehouseConfig) *APIClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSec)*time.Second).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &APIClient{
		http:          client,
		endpoint:      cfg.OrderEndpoint,
		retryAttempts: attempts,
		backoffBase:   time.Second,
	}
}

// PlaceOrder POSTs the full batch once per attempt. Transient transport
// failures sleep 2^attempt backoff units before the next try; authentication
// rejections return an AuthError immediately; other non-2xx responses retry
// without sleeping. Exhausted attempts yield a TransportError.
func (c *APIClient) PlaceOrder(ctx context.Context, items []domain.OrderLine) (string, error) {
	payload := orderPayload{
		Items:     items,
		OrderDate: time.Now().Format("2006-01-02"),
		Priority:  "normal",
	}

	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		var created orderResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(payload).
			SetResult(&created).
			Post(c.endpoint)

		if err != nil {
			lastErr = err
			logger.Log.Error().Err(err).Int("attempt", attempt+1).Msg("API order attempt failed")
			if err := sleepCtx(ctx, c.backoffBase*(1<<attempt)); err != nil {
				return "", &domain.TransportError{Op: "place order", Err: err}
			}
			continue
		}

		status := resp.StatusCode()
		switch {
		case status == 201:
			logger.Log.Info().Str("order_id", created.OrderID).Msg("order placed via API")
			return created.OrderID, nil
		case status == 401 || status == 403:
			logger.Log.Error().Int("status", status).Msg("API order rejected: authentication")
			return "", &domain.AuthError{StatusCode: status}
		default:
			logger.Log.Warn().Int("status", status).Str("body", resp.String()).Msg("API order failed")
		}
	}

	if lastErr == nil {
		lastErr = context.DeadlineExceeded
	}
	return "", &domain.TransportError{Op: "place order", Err: lastErr}
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
