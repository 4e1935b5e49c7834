package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Screenshot captures the current viewport to
// <dir>/<name>_<timestamp>.png and returns the written path. A screenshot
// failure must never mask the error that prompted it, so callers typically
// log the returned error instead of propagating it.
func (s *Session) Screenshot(name string) (string, error) {
	if s.opts.ScreenshotDir == "" {
		return "", nil
	}

	if err := os.MkdirAll(s.opts.ScreenshotDir, 0o700); err != nil {
		return "", fmt.Errorf("browser: screenshot dir: %w", err)
	}

	var buf []byte
	if err := s.Do(s.opts.ActionTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", fmt.Errorf("browser: capture screenshot: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	path := filepath.Join(s.opts.ScreenshotDir, fmt.Sprintf("%s_%s.png", name, stamp))
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return "", fmt.Errorf("browser: write screenshot: %w", err)
	}

	s.logger.Info("browser: screenshot saved", "path", path)
	return path, nil
}

// Diagnose captures a screenshot for a failure and returns its path, logging
// rather than returning capture errors.
func (s *Session) Diagnose(name string) string {
	path, err := s.Screenshot(name)
	if err != nil {
		s.logger.Warn("browser: diagnostic screenshot failed", "name", name, "error", err)
		return ""
	}
	return path
}
