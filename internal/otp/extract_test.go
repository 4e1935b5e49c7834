package otp

import "testing"

func TestExtractCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"labelled", "Your OTP: 482913 expires in 5 minutes", "482913", true},
		{"otp is", "your otp is 173920", "173920", true},
		{"verification code", "Verification Code: 005511", "005511", true},
		{"generic code", "Use code 918273 to continue", "918273", true},
		{"bare six digits", "ref 334455 attached", "334455", true},
		{"prefers labelled over bare", "ticket 111111\nOTP: 222222", "222222", true},
		{"five digits only", "code: 12345", "", false},
		{"seven digit run", "id 1234567", "", false},
		{"no digits", "welcome to your inbox", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractCode(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ExtractCode(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNewMailReader_DerivesServer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		account string
		want    string
	}{
		{"me@gmail.com", "imap.gmail.com:993"},
		{"me@hotmail.com", "imap-mail.outlook.com:993"},
		{"me@corp.example", "imap.corp.example:993"},
	}

	for _, tt := range tests {
		r, err := NewMailReader(Config{Account: tt.account, Password: "app-pass"})
		if err != nil {
			t.Fatalf("NewMailReader(%q): %v", tt.account, err)
		}
		if r.cfg.Server != tt.want {
			t.Errorf("server for %q = %q, want %q", tt.account, r.cfg.Server, tt.want)
		}
	}
}

func TestNewMailReader_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := NewMailReader(Config{}); err == nil {
		t.Error("missing credentials should error")
	}
	if _, err := NewMailReader(Config{Account: "no-at-sign", Password: "p"}); err == nil {
		t.Error("underivable server should error")
	}
}
