package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsridhar/keepr/internal/browser"
)

// Sentinel errors for the cookie path.
var (
	ErrNoCookies       = errors.New("auth: no stored cookies")
	ErrCookiesRejected = errors.New("auth: stored cookies rejected by portal")
)

// loggedInSelectors are elements only rendered for an authenticated user,
// used when the post-navigation URL alone is inconclusive.
var loggedInSelectors = []string{
	".nI-gNb-drawer__icon",
	".user-badge",
	"[class*='logged']",
}

// CookieStrategy restores a previously exported browser session. Expiry is
// unknown until probed: the strategy injects the cookies, loads the profile
// page, and classifies the result.
type CookieStrategy struct {
	File       string // JSON cookie dump, written by `keepr login`
	HomeURL    string
	ProfileURL string
	Logger     *slog.Logger
}

var _ Strategy = (*CookieStrategy)(nil)

// Name implements Strategy.
func (c *CookieStrategy) Name() string { return "cookies" }

// Establish implements Strategy.
func (c *CookieStrategy) Establish(_ context.Context, s *browser.Session) error {
	cookies, err := browser.ReadCookieFile(c.File)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoCookies, err)
	}
	if len(cookies) == 0 {
		return ErrNoCookies
	}

	// Cookies can only be set once the tab is on the portal's domain.
	if err := s.Navigate(c.HomeURL); err != nil {
		return err
	}

	applied, err := s.SetCookies(cookies)
	if err != nil {
		return err
	}
	c.logger().Info("auth: cookies applied", "count", applied, "total", len(cookies))

	if err := s.Navigate(c.ProfileURL); err != nil {
		return err
	}

	loc, err := s.Location()
	if err != nil {
		return err
	}

	switch {
	case isLoginPage(loc):
		return fmt.Errorf("%w: redirected to %s", ErrCookiesRejected, loc)
	case loc == c.ProfileURL:
		return nil
	}

	// Some portal flows land on an intermediate page. Probe for an element
	// only shown to authenticated users before declaring success.
	if _, err := s.FindFirst(loggedInSelectors); err != nil {
		return fmt.Errorf("%w: no logged-in markers at %s", ErrCookiesRejected, loc)
	}
	return nil
}

func (c *CookieStrategy) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
