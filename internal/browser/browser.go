// Package browser manages a Chrome instance over the DevTools protocol and
// exposes the small navigation surface the auth and action layers need.
// Every operation is bounded by a timeout so a wedged page can never stall
// the scheduler loop indefinitely.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrNoSelectorMatched is returned by FindFirst when none of the candidate
// selectors produced an element in time.
var ErrNoSelectorMatched = errors.New("browser: no selector matched")

// stealthScript hides the usual automation fingerprints before any portal
// script runs. Job portals actively block obvious headless sessions.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = {runtime: {}};
`

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Options configures a browser session.
type Options struct {
	Headless      bool
	UserAgent     string        // empty = defaultUserAgent
	NavTimeout    time.Duration // per-navigation bound
	ActionTimeout time.Duration // per-interaction bound
	ScreenshotDir string
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 30 * time.Second
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 20 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Session is a single authenticated (or to-be-authenticated) browser tab.
// Sessions are created per job invocation and discarded after use.
type Session struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// New launches Chrome and opens one tab. The session inherits cancellation
// from parent; Close must be called to release the process.
func New(parent context.Context, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("lang", "en-US,en"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	cancel := func() {
		cancelTab()
		cancelAlloc()
	}

	// Starting the browser and installing the stealth script is one Run so a
	// launch failure surfaces here, not on first navigation.
	startCtx, cancelStart := context.WithTimeout(tabCtx, opts.NavTimeout)
	defer cancelStart()
	err := chromedp.Run(startCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	}))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	return &Session{
		opts:   opts,
		ctx:    tabCtx,
		cancel: cancel,
		logger: opts.Logger,
	}, nil
}

// Close shuts down the tab and the browser process.
func (s *Session) Close() {
	s.cancel()
}

// Do runs DevTools actions under the given timeout.
func (s *Session) Do(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads url and waits for the document to become ready.
func (s *Session) Navigate(url string) error {
	err := s.Do(s.opts.NavTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

// Location returns the current page URL.
func (s *Session) Location() (string, error) {
	var loc string
	if err := s.Do(s.opts.ActionTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("browser: location: %w", err)
	}
	return loc, nil
}

// FindFirst tries candidate selectors in order and returns the first one
// that produces a ready element. Portal markup shifts often, so callers pass
// a preference-ordered fallback list instead of a single selector.
func (s *Session) FindFirst(selectors []string) (string, error) {
	per := s.opts.ActionTimeout / time.Duration(max(len(selectors), 1))
	if per < 2*time.Second {
		per = 2 * time.Second
	}

	for _, sel := range selectors {
		err := s.Do(per, chromedp.WaitReady(sel, chromedp.ByQuery))
		if err == nil {
			s.logger.Debug("browser: selector matched", "selector", sel)
			return sel, nil
		}
	}
	return "", fmt.Errorf("%w: tried %d selectors", ErrNoSelectorMatched, len(selectors))
}

// ActionTimeout exposes the configured per-interaction bound for callers
// composing their own Do calls.
func (s *Session) ActionTimeout() time.Duration {
	return s.opts.ActionTimeout
}
