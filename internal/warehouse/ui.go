package warehouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/andresuchdata/salesbot/internal/config"
	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

// UISubmitter is the fallback transport: a browser-driven order form.
type UISubmitter interface {
	SubmitOrder(ctx context.Context, items []domain.OrderLine) (string, error)
}

// BrowserSubmitter drives the warehouse web UI with a headless browser. The
// browser is allocated per submission and released on every exit path.
type BrowserSubmitter struct {
	baseURL       string
	username      string
	password      string
	timeout       time.Duration
	screenshotDir string
}

func NewBrowserSubmitter(cfg config.WarehouseConfig) *BrowserSubmitter {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrowserSubmitter{
		baseURL:       cfg.BaseURL,
		username:      cfg.Username,
		password:      cfg.Password,
		timeout:       timeout,
		screenshotDir: cfg.ScreenshotDir,
	}
}

// SubmitOrder logs in and fills the order form for every item. A screenshot
// is captured to error_screenshot.png when anything fails. All browser
// resources are released before returning, success or not.
func (b *BrowserSubmitter) SubmitOrder(ctx context.Context, items []domain.OrderLine) (orderID string, err error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, b.timeout*time.Duration(2+len(items)))
	defer cancelRun()

	defer func() {
		if err != nil {
			b.captureScreenshot(runCtx)
		}
	}()

	if err = b.login(runCtx); err != nil {
		return "", fmt.Errorf("failed to log in to warehouse system: %w", err)
	}

	logger.Log.Info().Int("items", len(items)).Msg("placing order via UI automation")

	actions := []chromedp.Action{
		chromedp.Navigate(b.baseURL + "/orders/new"),
		chromedp.WaitVisible("#order-form"),
	}
	for _, item := range items {
		actions = append(actions,
			chromedp.Click("#add-item-button"),
			chromedp.WaitVisible(".item-row"),
			chromedp.SendKeys(`.item-row:last-of-type input[name="item_code"]`, item.ItemCode),
			chromedp.SendKeys(`.item-row:last-of-type input[name="quantity"]`, strconv.Itoa(item.Quantity)),
		)
	}
	actions = append(actions,
		chromedp.Click("#submit-order"),
		chromedp.WaitVisible("#order-confirmation"),
		chromedp.Text("#order-confirmation", &orderID),
	)

	if err = chromedp.Run(runCtx, actions...); err != nil {
		return "", fmt.Errorf("UI order placement failed: %w", err)
	}

	logger.Log.Info().Str("order_id", orderID).Msg("order placed via UI")
	return orderID, nil
}

func (b *BrowserSubmitter) login(ctx context.Context) error {
	return chromedp.Run(ctx,
		chromedp.Navigate(b.baseURL+"/login"),
		chromedp.WaitVisible("#username"),
		chromedp.SendKeys("#username", b.username),
		chromedp.SendKeys("#password", b.password),
		chromedp.Click("#login-button"),
		chromedp.WaitVisible(".dashboard"),
	)
}

// captureScreenshot saves diagnostic state on failure. Best effort: a dead
// browser context must not mask the original error.
func (b *BrowserSubmitter) captureScreenshot(ctx context.Context) {
	var buf []byte
	shotCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := chromedp.Run(shotCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().Do(ctx)
		return err
	}))
	if err != nil {
		logger.Log.Warn().Err(err).Msg("screenshot capture failed")
		return
	}

	path := filepath.Join(b.screenshotDir, "error_screenshot.png")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		logger.Log.Warn().Err(err).Str("path", path).Msg("cannot write screenshot")
		return
	}
	logger.Log.Info().Str("path", path).Msg("saved error screenshot")
}
