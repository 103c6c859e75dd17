package phone

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"5551234567", "15551234567"},
		{"15551234567", "15551234567"},
		{"+1 (555) 123-4567", "15551234567"},
		{"+15551234567", "15551234567"},
		{"555-1234", "5551234"},
		{"+442071234567", "442071234567"},
		{"someone@example.com", ""},
		{"", ""},
	}

	for _, test := range tests {
		if got := Normalize(test.input); got != test.expected {
			t.Errorf("Normalize(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"5551234567", "+1 (555) 123-4567", "442071234567"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestVariants(t *testing.T) {
	got := Variants("+1 (555) 123-4567")
	expected := []string{"+1 (555) 123-4567", "15551234567", "+15551234567", "5551234567"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Variants = %v, expected %v", got, expected)
	}
}

func TestVariantsShortNumber(t *testing.T) {
	// No last-10 variant for short numbers.
	got := Variants("555-1234")
	expected := []string{"555-1234", "5551234", "+5551234"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Variants = %v, expected %v", got, expected)
	}
}

func TestVariantsEmail(t *testing.T) {
	got := Variants("someone@example.com")
	if len(got) != 1 || got[0] != "someone@example.com" {
		t.Errorf("Variants for email = %v, expected just the raw input", got)
	}
}

func TestCleanDisplay(t *testing.T) {
	if got := CleanDisplay("(555) 123-4567"); got != "+15551234567" {
		t.Errorf("CleanDisplay = %q", got)
	}
	if got := CleanDisplay("someone@example.com"); got != "someone@example.com" {
		t.Errorf("CleanDisplay should pass through digit-free input, got %q", got)
	}
}

func TestLooksLikePhone(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"+15551234567", true},
		{"(555) 123-4567", true},
		{"555.123.4567", true},
		{"someone@example.com", false},
		{"chat123456", false},
		{"", false},
		{"---", false},
	}
	for _, test := range tests {
		if got := LooksLikePhone(test.input); got != test.expected {
			t.Errorf("LooksLikePhone(%q) = %v, expected %v", test.input, got, test.expected)
		}
	}
}
