package typedstream

import (
	"strings"
	"testing"
)

// buildBlob assembles a minimal typedstream-shaped blob: leading junk, the
// NSString anchor, a marker variant, then the caller-supplied tail.
func buildBlob(marker []byte, tail ...byte) []byte {
	blob := []byte("streamtyped junk NSString")
	blob = append(blob, marker...)
	blob = append(blob, tail...)
	return blob
}

func TestDecodeSingleByteLength(t *testing.T) {
	blob := buildBlob([]byte{0x84, 0x01, 0x2b}, append([]byte{5}, []byte("hello")...)...)

	text, ok := Decode(blob)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if text != "hello" {
		t.Errorf("got %q, expected %q", text, "hello")
	}
}

func TestDecodeLongMarkerVariant(t *testing.T) {
	blob := buildBlob([]byte{0x67, 0x01, 0x94, 0x84, 0x01, 0x2b}, append([]byte{7}, []byte("hi anna")...)...)

	text, ok := Decode(blob)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if text != "hi anna" {
		t.Errorf("got %q, expected %q", text, "hi anna")
	}
}

func TestDecodeOneTrailingLengthByte(t *testing.T) {
	payload := strings.Repeat("a", 150)
	tail := []byte{0x81, 150, 0x00}
	tail = append(tail, []byte(payload)...)
	blob := buildBlob([]byte{0x84, 0x01, 0x2b}, tail...)

	text, ok := Decode(blob)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if text != payload {
		t.Errorf("got %d chars, expected %d", len(text), len(payload))
	}
}

func TestDecodeTwoTrailingLengthBytes(t *testing.T) {
	payload := strings.Repeat("b", 300)
	// 300 = 0x012c little-endian
	tail := []byte{0x82, 0x2c, 0x01, 0x00}
	tail = append(tail, []byte(payload)...)
	blob := buildBlob([]byte{0x84, 0x01, 0x2b}, tail...)

	text, ok := Decode(blob)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if text != payload {
		t.Errorf("got %d chars, expected %d", len(text), len(payload))
	}
}

func TestDecodeStopsAtControlByte(t *testing.T) {
	payload := "hi\x00world!"
	tail := append([]byte{byte(len(payload))}, []byte(payload)...)
	blob := buildBlob([]byte{0x84, 0x01, 0x2b}, tail...)

	text, ok := Decode(blob)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if text != "hi" {
		t.Errorf("got %q, expected truncation at the control byte", text)
	}
}

func TestDecodeKeepsNewlinesAndTabs(t *testing.T) {
	payload := "line one\nline two\ttabbed"
	tail := append([]byte{byte(len(payload))}, []byte(payload)...)
	blob := buildBlob([]byte{0x84, 0x01, 0x2b}, tail...)

	text, ok := Decode(blob)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if text != payload {
		t.Errorf("got %q, expected %q", text, payload)
	}
}

func TestDecodeNoAnchor(t *testing.T) {
	if _, ok := Decode([]byte("no marker anywhere in this blob")); ok {
		t.Error("expected undecodable for blob without anchor")
	}
}

func TestDecodeEmptyAndNil(t *testing.T) {
	if _, ok := Decode(nil); ok {
		t.Error("expected undecodable for nil blob")
	}
	if _, ok := Decode([]byte{}); ok {
		t.Error("expected undecodable for empty blob")
	}
}

func TestDecodeInvalidUTF8FallsThrough(t *testing.T) {
	// Marker match points at invalid UTF-8; no scan candidate survives either.
	tail := []byte{3, 0xff, 0xfe, 0xfd}
	blob := buildBlob([]byte{0x84, 0x01, 0x2b}, tail...)

	if _, ok := Decode(blob); ok {
		t.Error("expected undecodable for invalid UTF-8 payload")
	}
}

func TestDecodeOutOfBoundsLength(t *testing.T) {
	// Claimed length runs past the end of the blob.
	tail := append([]byte{200}, []byte("short")...)
	blob := buildBlob([]byte{0x84, 0x01, 0x2b}, tail...)

	if _, ok := Decode(blob); ok {
		t.Error("expected undecodable for out-of-range length")
	}
}

func TestScanFallback(t *testing.T) {
	// No known marker: the byte after the anchor is a plausible length
	// followed by real text. Padding keeps the scan window open.
	blob := []byte("NSString")
	blob = append(blob, 11)
	blob = append(blob, []byte("hello world")...)
	blob = append(blob, []byte("            ")...)

	text, ok := Decode(blob)
	if !ok {
		t.Fatal("expected scan fallback to succeed")
	}
	if text != "hello world" {
		t.Errorf("got %q, expected %q", text, "hello world")
	}
}

func TestScanRejectsClassNames(t *testing.T) {
	// A candidate starting with "NS" is framework metadata, not message text.
	blob := []byte("NSString")
	blob = append(blob, 12)
	blob = append(blob, []byte("NSDictionary")...)
	blob = append(blob, []byte("            ")...)

	if text, ok := Decode(blob); ok {
		t.Errorf("expected rejection of class-name candidate, got %q", text)
	}
}

func TestDecodeWhitespaceOnlyIsUndecodable(t *testing.T) {
	tail := append([]byte{2}, []byte("  ")...)
	blob := buildBlob([]byte{0x84, 0x01, 0x2b}, tail...)

	if _, ok := Decode(blob); ok {
		t.Error("expected undecodable when sanitization leaves nothing")
	}
}
