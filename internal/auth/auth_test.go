package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jsridhar/keepr/internal/browser"
)

// fakeStrategy records invocations and returns a fixed error.
type fakeStrategy struct {
	name  string
	err   error
	calls int
}

func (f *fakeStrategy) Name() string { return f.name }
func (f *fakeStrategy) Establish(_ context.Context, _ *browser.Session) error {
	f.calls++
	return f.err
}

func TestManager_FirstSuccessWins(t *testing.T) {
	t.Parallel()

	cookie := &fakeStrategy{name: "cookies"}
	password := &fakeStrategy{name: "password"}

	m := NewManager(slog.Default(), cookie, password)
	if err := m.Establish(context.Background(), nil); err != nil {
		t.Fatalf("Establish: %v", err)
	}

	if cookie.calls != 1 {
		t.Errorf("cookie strategy calls = %d, want 1", cookie.calls)
	}
	// Valid cookies must never reach the fallback (and therefore never the
	// OTP path behind it).
	if password.calls != 0 {
		t.Errorf("password strategy calls = %d, want 0", password.calls)
	}
}

func TestManager_FallsBackInOrder(t *testing.T) {
	t.Parallel()

	cookie := &fakeStrategy{name: "cookies", err: ErrCookiesRejected}
	password := &fakeStrategy{name: "password"}

	m := NewManager(slog.Default(), cookie, password)
	if err := m.Establish(context.Background(), nil); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if cookie.calls != 1 || password.calls != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", cookie.calls, password.calls)
	}
}

func TestManager_TerminalFailureCarriesAllCauses(t *testing.T) {
	t.Parallel()

	cookie := &fakeStrategy{name: "cookies", err: ErrNoCookies}
	password := &fakeStrategy{name: "password", err: ErrLoginRejected}

	m := NewManager(slog.Default(), cookie, password)
	err := m.Establish(context.Background(), nil)

	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Fatalf("Establish = %v, want *auth.Error", err)
	}
	if len(authErr.Causes) != 2 {
		t.Fatalf("causes = %d, want 2", len(authErr.Causes))
	}
	if !errors.Is(err, ErrNoCookies) || !errors.Is(err, ErrLoginRejected) {
		t.Errorf("terminal error should wrap both causes: %v", err)
	}
}

func TestManager_AttemptHook(t *testing.T) {
	t.Parallel()

	var seen []string
	m := NewManager(slog.Default(),
		&fakeStrategy{name: "cookies", err: ErrNoCookies},
		&fakeStrategy{name: "password"},
	)
	m.AttemptHook = func(strategy string, err error) {
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		seen = append(seen, strategy+":"+outcome)
	}

	if err := m.Establish(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != "cookies:failed" || seen[1] != "password:ok" {
		t.Errorf("hook observations = %v", seen)
	}
}

func TestManager_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(slog.Default(), &fakeStrategy{name: "cookies"})
	if err := m.Establish(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Establish on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestPasswordStrategy_NoCredentials(t *testing.T) {
	t.Parallel()

	p := &PasswordStrategy{LoginURL: "https://example.com/login"}
	if err := p.Establish(context.Background(), nil); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Establish = %v, want ErrNoCredentials", err)
	}
}

func TestIsLoginPage(t *testing.T) {
	t.Parallel()

	if !isLoginPage("https://www.example-jobs.com/nlogin/login") {
		t.Error("login URL not classified as login page")
	}
	if isLoginPage("https://www.example-jobs.com/mnjuser/profile") {
		t.Error("profile URL classified as login page")
	}
}
