// Package auth resolves an authenticated portal session. Strategies are
// tried in a fixed order (stored cookies first, then credentials with an
// optional OTP challenge) and the first success wins. When every strategy
// fails the caller gets a single terminal Error carrying all causes; the
// job's tick is abandoned and the next scheduled tick retries from scratch.
package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jsridhar/keepr/internal/browser"
)

// Strategy is one way of turning a fresh browser session into an
// authenticated one.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Establish authenticates the session in place. A non-nil error means
	// this strategy is exhausted for this tick; the manager moves on.
	Establish(ctx context.Context, s *browser.Session) error
}

// Error is the terminal authentication failure: every configured strategy
// was tried and rejected.
type Error struct {
	Causes []error
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, cause := range e.Causes {
		msgs[i] = cause.Error()
	}
	return "auth: all strategies failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the per-strategy causes to errors.Is / errors.As.
func (e *Error) Unwrap() []error { return e.Causes }

// Manager tries strategies in registration order.
type Manager struct {
	strategies []Strategy
	logger     *slog.Logger

	// AttemptHook, when set, observes each strategy attempt (err is nil on
	// success). Used to feed metrics without coupling this package to them.
	AttemptHook func(strategy string, err error)
}

// NewManager creates a manager with the given fallback order.
func NewManager(logger *slog.Logger, strategies ...Strategy) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{strategies: strategies, logger: logger}
}

// Establish runs the fallback sequence against s. Returns nil after the
// first successful strategy, or a *Error when all are exhausted.
func (m *Manager) Establish(ctx context.Context, s *browser.Session) error {
	var causes []error

	for _, strategy := range m.strategies {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.logger.Info("auth: trying strategy", "strategy", strategy.Name())
		err := strategy.Establish(ctx, s)
		if m.AttemptHook != nil {
			m.AttemptHook(strategy.Name(), err)
		}

		if err == nil {
			m.logger.Info("auth: authenticated", "strategy", strategy.Name())
			return nil
		}

		m.logger.Warn("auth: strategy failed",
			"strategy", strategy.Name(),
			"error", err,
		)
		causes = append(causes, err)
	}

	return &Error{Causes: causes}
}

// isLoginPage classifies a URL as the portal's login surface.
func isLoginPage(loc string) bool {
	lower := strings.ToLower(loc)
	return strings.Contains(lower, "login")
}
