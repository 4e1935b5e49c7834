package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jsridhar/keepr/internal/browser"
	"github.com/jsridhar/keepr/internal/otp"
)

// Sentinel errors for the password path.
var (
	ErrNoCredentials = errors.New("auth: no credentials configured")
	ErrLoginRejected = errors.New("auth: login rejected by portal")
	ErrOTPUnanswered = errors.New("auth: portal challenged with OTP but no reader is configured")
)

// otpAttempts bounds code retrieval: the first wait plus a single retry.
const otpAttempts = 2

// Login form selector fallbacks.
var (
	emailSelectors = []string{
		"input[placeholder='Enter Email ID / Username']",
		"input[placeholder*='Email']",
		"#usernameField",
		"input[type='email']",
		"input[type='text'][name*='email']",
	}
	passwordSelectors = []string{
		"input[placeholder='Enter Password']",
		"input[placeholder*='Password']",
		"#passwordField",
		"input[type='password']",
	}
	submitSelectors = []string{
		"button[type='submit']",
		"button.loginButton",
		"button[class*='login']",
		"input[type='submit']",
	}
	otpInputSelectors = []string{
		"input[name*='otp']",
		"input[placeholder*='OTP']",
		"input[autocomplete='one-time-code']",
	}
	errorBannerSelectors = []string{
		".error-msg",
		".err-msg",
		".error",
	}
)

// PasswordStrategy submits stored credentials through the login form and,
// when the portal answers with an OTP challenge, retrieves the code from the
// configured reader.
type PasswordStrategy struct {
	Email    string
	Password string
	LoginURL string
	OTP      otp.Reader // nil disables the challenge path
	Logger   *slog.Logger
}

var _ Strategy = (*PasswordStrategy)(nil)

// Name implements Strategy.
func (p *PasswordStrategy) Name() string { return "password" }

// Establish implements Strategy.
func (p *PasswordStrategy) Establish(ctx context.Context, s *browser.Session) error {
	if p.Email == "" || p.Password == "" {
		return ErrNoCredentials
	}

	if err := s.Navigate(p.LoginURL); err != nil {
		return err
	}

	if err := p.fillCredentials(s); err != nil {
		return err
	}

	// Let the portal process the submit: redirect, error banner, or OTP.
	if err := s.Do(s.ActionTimeout(), chromedp.Sleep(5*time.Second)); err != nil {
		return err
	}

	if otpSel, err := s.FindFirst(otpInputSelectors); err == nil {
		if err := p.answerChallenge(ctx, s, otpSel); err != nil {
			return err
		}
	}

	return p.verify(s)
}

// fillCredentials types the email and password and submits the form.
func (p *PasswordStrategy) fillCredentials(s *browser.Session) error {
	emailSel, err := s.FindFirst(emailSelectors)
	if err != nil {
		return fmt.Errorf("auth: email field: %w", err)
	}
	passwordSel, err := s.FindFirst(passwordSelectors)
	if err != nil {
		return fmt.Errorf("auth: password field: %w", err)
	}
	submitSel, err := s.FindFirst(submitSelectors)
	if err != nil {
		return fmt.Errorf("auth: login button: %w", err)
	}

	return s.Do(s.ActionTimeout(),
		chromedp.SetValue(emailSel, p.Email, chromedp.ByQuery),
		chromedp.SetValue(passwordSel, p.Password, chromedp.ByQuery),
		chromedp.Click(submitSel, chromedp.ByQuery),
	)
}

// answerChallenge retrieves a code (bounded wait, single retry) and submits it.
func (p *PasswordStrategy) answerChallenge(ctx context.Context, s *browser.Session, otpSel string) error {
	if p.OTP == nil {
		return ErrOTPUnanswered
	}

	p.logger().Info("auth: portal challenged with OTP")

	var (
		code string
		err  error
	)
	for attempt := 1; attempt <= otpAttempts; attempt++ {
		code, err = p.OTP.WaitForCode(ctx)
		if err == nil {
			break
		}
		p.logger().Warn("auth: OTP retrieval failed",
			"attempt", attempt,
			"error", err,
		)
	}
	if err != nil {
		return fmt.Errorf("auth: otp challenge: %w", err)
	}

	submitSel, err := s.FindFirst(submitSelectors)
	if err != nil {
		return fmt.Errorf("auth: otp submit button: %w", err)
	}

	return s.Do(s.ActionTimeout(),
		chromedp.SetValue(otpSel, code, chromedp.ByQuery),
		chromedp.Click(submitSel, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	)
}

// verify classifies the post-login page. Leaving the login URL counts as
// success; staying on it with a visible error banner is a rejection.
func (p *PasswordStrategy) verify(s *browser.Session) error {
	loc, err := s.Location()
	if err != nil {
		return err
	}

	if !isLoginPage(loc) {
		return nil
	}

	if banner, err := s.FindFirst(errorBannerSelectors); err == nil {
		var msg string
		_ = s.Do(s.ActionTimeout(), chromedp.Text(banner, &msg, chromedp.ByQuery))
		return fmt.Errorf("%w: %s", ErrLoginRejected, msg)
	}

	return fmt.Errorf("%w: still on login page %s", ErrLoginRejected, loc)
}

func (p *PasswordStrategy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
