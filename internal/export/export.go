// Package export implements the interactive cookie bootstrap. A visible
// browser is opened on the portal's login page; the user signs in by hand
// (solving any OTP or captcha themselves), confirms in the terminal, and the
// resulting session cookies are written to the cookie file for the daemon's
// unattended runs.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/jsridhar/keepr/internal/browser"
)

// ErrAborted is returned when the user declines to save cookies.
var ErrAborted = errors.New("export: aborted by user")

// Options configures one export run.
type Options struct {
	LoginURL   string
	CookieFile string
	Browser    browser.Options
	Logger     *slog.Logger

	// confirm defaults to the terminal form.
	confirm func() (bool, error)
}

// Run opens the login page, waits for the user to sign in, and saves the
// portal cookies.
func Run(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.confirm == nil {
		opts.confirm = askConfirm
	}

	domain, err := portalDomain(opts.LoginURL)
	if err != nil {
		return err
	}

	// Cookie export is interactive by definition; headless makes no sense here.
	opts.Browser.Headless = false

	sess, err := browser.New(ctx, opts.Browser)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer sess.Close()

	if err := sess.Navigate(opts.LoginURL); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	opts.Logger.Info("export: waiting for manual login", "url", opts.LoginURL)

	done, err := opts.confirm()
	if err != nil {
		return fmt.Errorf("export: prompt: %w", err)
	}
	if !done {
		return ErrAborted
	}

	cookies, err := sess.ExportCookies(domain)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("export: no cookies for %s, did the login complete?", domain)
	}

	if err := browser.WriteCookieFile(opts.CookieFile, cookies); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	opts.Logger.Info("export: cookies saved",
		"file", opts.CookieFile,
		"cookies", len(cookies),
		"domain", domain,
	)
	return nil
}

func askConfirm() (bool, error) {
	var done bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Finished logging in?").
			Description("Complete the sign-in (including any OTP) in the browser window, then confirm here.").
			Affirmative("Save cookies").
			Negative("Abort").
			Value(&done),
	))
	if err := form.Run(); err != nil {
		return false, err
	}
	return done, nil
}

// portalDomain extracts the registrable-ish host suffix used to filter the
// cookie export, e.g. "www.example-jobs.com" -> "example-jobs.com".
func portalDomain(loginURL string) (string, error) {
	u, err := url.Parse(loginURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("export: invalid login url %q", loginURL)
	}
	host := u.Hostname()
	parts := strings.Split(host, ".")
	if len(parts) > 2 {
		host = strings.Join(parts[len(parts)-2:], ".")
	}
	return host, nil
}
