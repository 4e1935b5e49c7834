package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// Cookie is the on-disk cookie format. It matches the JSON produced by the
// common browser cookie-export extensions, so a manually exported dump works
// as well as one written by `keepr login`.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expirationDate,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
}

// ReadCookieFile loads a cookie JSON dump from disk.
func ReadCookieFile(path string) ([]Cookie, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("browser: reading cookies %s: %w", path, err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return nil, fmt.Errorf("browser: parsing cookies %s: %w", path, err)
	}
	return cookies, nil
}

// WriteCookieFile stores cookies as JSON with owner-only permissions.
func WriteCookieFile(path string, cookies []Cookie) error {
	raw, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("browser: encoding cookies: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("browser: writing cookies %s: %w", path, err)
	}
	return nil
}

// SetCookies injects cookies into the session, skipping entries without a
// name or value. Returns the number of cookies applied. The current page must
// already be on the cookie domain for host-only cookies to stick.
func (s *Session) SetCookies(cookies []Cookie) (int, error) {
	var applied int

	err := s.Do(s.opts.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			if c.Name == "" || c.Value == "" {
				continue
			}

			p := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(defaultStr(c.Path, "/")).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(timeFromUnixFloat(c.Expires))
				p = p.WithExpires(&expires)
			}

			if err := p.Do(ctx); err != nil {
				// One stale cookie should not abort the whole restore.
				s.logger.Debug("browser: cookie rejected", "name", c.Name, "error", err)
				continue
			}
			applied++
		}
		return nil
	}))
	if err != nil {
		return applied, fmt.Errorf("browser: set cookies: %w", err)
	}
	return applied, nil
}

// ExportCookies returns the browser's cookies, optionally filtered to a
// domain suffix (e.g. "example-jobs.com").
func (s *Session) ExportCookies(domainSuffix string) ([]Cookie, error) {
	var out []Cookie

	err := s.Do(s.opts.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range raw {
			if domainSuffix != "" && !strings.HasSuffix(strings.TrimPrefix(c.Domain, "."), domainSuffix) {
				continue
			}
			out = append(out, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("browser: export cookies: %w", err)
	}
	return out, nil
}

func timeFromUnixFloat(v float64) time.Time {
	sec := int64(v)
	nsec := int64((v - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func defaultStr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
