// Package otp retrieves one-time login codes from an email inbox. It is the
// external collaborator consulted when the portal challenges a password
// login; cookie-based sessions never reach it.
package otp

import "regexp"

// codePatterns is the extraction ladder, most specific first. The bare
// 6-digit fallback is last because marketing mail is full of stray numbers.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)OTP[:\s]+(\d{6})`),
	regexp.MustCompile(`(?i)OTP\s+is\s+(\d{6})`),
	regexp.MustCompile(`(?i)verification\s+code[:\s]+(\d{6})`),
	regexp.MustCompile(`(?i)code[:\s]+(\d{6})`),
	regexp.MustCompile(`\b(\d{6})\b`),
}

// ExtractCode scans free-form email text for a 6-digit login code.
func ExtractCode(text string) (string, bool) {
	for _, pattern := range codePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}
