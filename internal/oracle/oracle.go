// Package oracle provides best-effort contact name lookup against the
// macOS contact directory. Everything here is outside the core pipeline's
// control: lookups may time out, find nothing, or fail entirely, and every
// one of those outcomes is simply "no match".
package oracle

import "context"

// Oracle resolves a raw identifier (phone or email) to a display name.
// The boolean is false on no match; implementations never return errors
// because a failed enrichment lookup is not an error for the pipeline.
type Oracle interface {
	Lookup(ctx context.Context, identifier string) (string, bool)
}

// Noop is the stub implementation: it matches nothing. Useful in tests and
// when enrichment is disabled.
type Noop struct{}

func (Noop) Lookup(ctx context.Context, identifier string) (string, bool) {
	return "", false
}

// Chain tries each oracle in order and returns the first match. The cheap
// AddressBook read goes before the AppleScript round-trip.
type Chain []Oracle

func (c Chain) Lookup(ctx context.Context, identifier string) (string, bool) {
	for _, o := range c {
		if name, ok := o.Lookup(ctx, identifier); ok {
			return name, true
		}
	}
	return "", false
}
