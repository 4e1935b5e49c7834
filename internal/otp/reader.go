package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// ErrOTPTimeout is returned when no code arrived within the wait window.
var ErrOTPTimeout = errors.New("otp: timed out waiting for code")

// Reader produces a one-time code on demand. The mail-backed implementation
// is below; tests and the auth package substitute fakes.
type Reader interface {
	WaitForCode(ctx context.Context) (string, error)
}

// imapServers maps common mail providers to their IMAP endpoints. Unknown
// domains fall back to the imap.<domain> convention.
var imapServers = map[string]string{
	"gmail.com":   "imap.gmail.com:993",
	"yahoo.com":   "imap.mail.yahoo.com:993",
	"outlook.com": "imap-mail.outlook.com:993",
	"hotmail.com": "imap-mail.outlook.com:993",
}

// recentMessageCount bounds how many messages per poll are scanned for a code.
const recentMessageCount = 5

// Config holds the mailbox the portal sends codes to. Password is an
// app password, not the mailbox login password.
type Config struct {
	Server       string // host:port; derived from Account's domain when empty
	Account      string
	Password     string
	Sender       string // substring matched against the From header
	WaitTimeout  time.Duration
	PollInterval time.Duration
	Logger       *slog.Logger
}

// MailReader polls an IMAP inbox until a code shows up or the wait window
// closes.
type MailReader struct {
	cfg    Config
	logger *slog.Logger
}

var _ Reader = (*MailReader)(nil)

// NewMailReader builds a reader, deriving the IMAP endpoint from the account
// domain when no server is configured.
func NewMailReader(cfg Config) (*MailReader, error) {
	if cfg.Account == "" || cfg.Password == "" {
		return nil, errors.New("otp: account and app password are required")
	}

	if cfg.Server == "" {
		at := strings.LastIndex(cfg.Account, "@")
		if at < 0 {
			return nil, fmt.Errorf("otp: cannot derive IMAP server from account %q", cfg.Account)
		}
		domain := strings.ToLower(cfg.Account[at+1:])
		if server, ok := imapServers[domain]; ok {
			cfg.Server = server
		} else {
			cfg.Server = "imap." + domain + ":993"
		}
	}

	if cfg.Sender == "" {
		cfg.Sender = "naukri"
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 2 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &MailReader{cfg: cfg, logger: cfg.Logger}, nil
}

// WaitForCode polls the inbox until a code is extracted or the wait window
// (or ctx) expires. Expiry returns ErrOTPTimeout.
func (r *MailReader) WaitForCode(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WaitTimeout)
	defer cancel()

	r.logger.Info("otp: waiting for code",
		"server", r.cfg.Server,
		"sender", r.cfg.Sender,
		"timeout", r.cfg.WaitTimeout,
	)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		code, err := r.scanInbox(ctx)
		if err != nil {
			// Connection hiccups are expected mid-poll; keep trying until
			// the window closes.
			r.logger.Warn("otp: inbox scan failed", "error", err)
		}
		if code != "" {
			r.logger.Info("otp: code retrieved")
			return code, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w (after %s)", ErrOTPTimeout, r.cfg.WaitTimeout)
		case <-ticker.C:
		}
	}
}

// scanInbox opens a fresh IMAP session and scans the newest messages from
// the configured sender for a code. A fresh connection per poll keeps the
// reader stateless across the scheduler's low-frequency ticks.
func (r *MailReader) scanInbox(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client, err := imapclient.DialTLS(r.cfg.Server, nil)
	if err != nil {
		return "", fmt.Errorf("otp: dial %s: %w", r.cfg.Server, err)
	}
	defer client.Close()

	if err := client.Login(r.cfg.Account, r.cfg.Password).Wait(); err != nil {
		return "", fmt.Errorf("otp: login: %w", err)
	}
	defer func() {
		_ = client.Logout().Wait()
	}()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return "", fmt.Errorf("otp: select inbox: %w", err)
	}

	search, err := client.Search(&imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "From", Value: r.cfg.Sender},
		},
	}, nil).Wait()
	if err != nil {
		return "", fmt.Errorf("otp: search: %w", err)
	}

	nums := search.AllSeqNums()
	if len(nums) == 0 {
		return "", nil
	}
	if len(nums) > recentMessageCount {
		nums = nums[len(nums)-recentMessageCount:]
	}

	var seqSet imap.SeqSet
	seqSet.AddNum(nums...)

	section := &imap.FetchItemBodySection{}
	msgs, err := client.Fetch(seqSet, &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return "", fmt.Errorf("otp: fetch: %w", err)
	}

	// Newest first.
	for i := len(msgs) - 1; i >= 0; i-- {
		body := msgs[i].FindBodySection(section)
		if code, ok := ExtractCode(string(body)); ok {
			return code, nil
		}
	}
	return "", nil
}
