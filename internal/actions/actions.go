// Package actions performs the two idempotent profile operations against an
// authenticated browser session: re-uploading the local resume file and
// toggling a trailing marker on the profile headline. Both exist only to
// make the portal register a profile update; neither changes profile content
// in a way the owner would notice.
package actions

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jsridhar/keepr/internal/browser"
)

// marker is the character appended to (or stripped from) the headline.
const marker = "."

// Error is a failed profile action: what was attempted, the diagnostic
// screenshot captured at the point of failure, and the cause.
type Error struct {
	Action     string
	Screenshot string
	Err        error
}

func (e *Error) Error() string {
	if e.Screenshot != "" {
		return fmt.Sprintf("actions: %s failed (screenshot %s): %v", e.Action, e.Screenshot, e.Err)
	}
	return fmt.Sprintf("actions: %s failed: %v", e.Action, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// fail wraps err with a diagnostic screenshot of the current page.
func fail(s *browser.Session, action string, err error) error {
	return &Error{
		Action:     action,
		Screenshot: s.Diagnose(action + "_error"),
		Err:        err,
	}
}

// ResumeLimits bounds what the upload action will accept from disk.
type ResumeLimits struct {
	MaxBytes   int64
	Extensions []string
}

// ValidateResumeFile checks that path exists, is small enough, and has an
// allowed extension.
func ValidateResumeFile(path string, limits ResumeLimits) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("actions: resume file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("actions: resume file %s is a directory", path)
	}
	if limits.MaxBytes > 0 && info.Size() > limits.MaxBytes {
		return fmt.Errorf("actions: resume file %s is %d bytes, limit %d", path, info.Size(), limits.MaxBytes)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if len(limits.Extensions) > 0 && !slices.Contains(limits.Extensions, ext) {
		return fmt.Errorf("actions: resume file extension %q not in %v", ext, limits.Extensions)
	}
	return nil
}

// UploadResume re-uploads the local resume file through the profile page's
// file input. The input is often hidden behind the resume widget, so the
// widget is clicked open when the input is not immediately findable.
func UploadResume(s *browser.Session, logger *slog.Logger, path string, limits ResumeLimits) error {
	if err := ValidateResumeFile(path, limits); err != nil {
		return fail(s, "resume_upload", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fail(s, "resume_upload", err)
	}

	sel, err := s.FindFirst(fileInputSelectors)
	if errors.Is(err, browser.ErrNoSelectorMatched) {
		logger.Debug("actions: file input hidden, expanding resume widget")
		if widget, werr := s.FindFirst(resumeSectionSelectors); werr == nil {
			_ = s.Do(s.ActionTimeout(), chromedp.Click(widget, chromedp.ByQuery))
		}
		sel, err = s.FindFirst(fileInputSelectors)
	}
	if err != nil {
		return fail(s, "resume_upload", err)
	}

	logger.Info("actions: uploading resume", "file", abs, "selector", sel)

	err = s.Do(s.ActionTimeout(),
		// Unhide the input; the portal keeps it display:none behind a
		// styled button, and a hidden node rejects file assignment.
		chromedp.Evaluate(fmt.Sprintf(
			`(() => { const el = document.querySelector(%q); if (el) { el.style.display = 'block'; el.style.visibility = 'visible'; } })()`,
			sel), nil),
		chromedp.SetUploadFiles(sel, []string{abs}, chromedp.ByQuery),
		// Give the portal's uploader time to push the file.
		chromedp.Sleep(5*time.Second),
	)
	if err != nil {
		return fail(s, "resume_upload", err)
	}

	logger.Info("actions: resume upload completed")
	return nil
}

// ToggleMarker flips the trailing marker on a headline: appends it when
// absent, strips it when present. Applying it twice returns the original
// string, which is what makes the headline job safely re-runnable.
func ToggleMarker(headline string) string {
	if strings.HasSuffix(headline, marker) {
		return strings.TrimSuffix(headline, marker)
	}
	return headline + marker
}

// ToggleHeadline opens the headline editor, flips the trailing marker, and
// saves. Returns the before and after values for the journal.
func ToggleHeadline(s *browser.Session, logger *slog.Logger) (before, after string, err error) {
	editSel, err := s.FindFirst(headlineEditSelectors)
	if err != nil {
		return "", "", fail(s, "headline_toggle", err)
	}
	if err := s.Do(s.ActionTimeout(), chromedp.Click(editSel, chromedp.ByQuery)); err != nil {
		return "", "", fail(s, "headline_toggle", err)
	}

	textSel, err := s.FindFirst(headlineTextareaSelectors)
	if err != nil {
		return "", "", fail(s, "headline_toggle", err)
	}

	if err := s.Do(s.ActionTimeout(), chromedp.Value(textSel, &before, chromedp.ByQuery)); err != nil {
		return "", "", fail(s, "headline_toggle", err)
	}

	after = ToggleMarker(before)

	saveSel, err := s.FindFirst(headlineSaveSelectors)
	if err != nil {
		return before, "", fail(s, "headline_toggle", err)
	}

	err = s.Do(s.ActionTimeout(),
		chromedp.SetValue(textSel, after, chromedp.ByQuery),
		chromedp.Click(saveSel, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		return before, after, fail(s, "headline_toggle", err)
	}

	logger.Info("actions: headline updated", "before", before, "after", after)
	return before, after, nil
}
