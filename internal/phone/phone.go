// Package phone normalizes contact identifiers for mapping lookups.
//
// iMessage handles arrive in many shapes ("+1 (555) 123-4567",
// "5551234567", "someone@example.com"). Normalization reduces phone-like
// identifiers to a canonical digit string so that the same person matches
// regardless of formatting. Emails and opaque handles pass through the
// variant set unchanged (their canonical form has no digits worth keeping).
package phone

import "strings"

// Normalize strips every non-digit character and applies the domestic-number
// assumption: exactly 10 digits get a leading country code "1"; an 11-digit
// string already starting with "1" passes through. Other digit counts are
// left as-is (international numbers are not further normalized).
// Returns "" when the input contains no digits.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		return "1" + digits
	}
	return digits
}

// Variants returns the lookup forms every mapping probe must try before
// declaring an identifier unresolved: the raw input, the canonical digits,
// the plus-prefixed digits, and (when long enough) the last 10 digits.
// Empty and duplicate forms are omitted, raw input first.
func Variants(raw string) []string {
	out := make([]string, 0, 4)
	seen := make(map[string]struct{}, 4)
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(raw)
	digits := Normalize(raw)
	add(digits)
	if digits != "" {
		add("+" + digits)
	}
	if len(digits) >= 10 {
		add(digits[len(digits)-10:])
	}
	return out
}

// CleanDisplay renders an identifier for display when no name is known:
// phone-like inputs become "+<canonical digits>", anything without digits
// is returned unchanged.
func CleanDisplay(s string) string {
	digits := Normalize(s)
	if digits == "" {
		return s
	}
	return "+" + digits
}

// LooksLikePhone reports whether an identifier is plausibly a phone number:
// it starts with "+" or consists solely of digits and common phone
// punctuation.
func LooksLikePhone(s string) bool {
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "+") {
		return true
	}
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '-' || r == '(' || r == ')' || r == ' ' || r == '.':
		default:
			return false
		}
	}
	return hasDigit
}
