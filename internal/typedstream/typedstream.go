// Package typedstream recovers plain text from the serialized
// NSAttributedString blobs iMessage stores in the attributedBody column.
//
// The typedstream container is undocumented and has shifted across macOS
// releases, so decoding is deliberately tolerant: a prioritized list of known
// byte-pattern variants is tried first, then a bounded heuristic scan. A blob
// that matches nothing is reported as undecodable, which is a normal outcome,
// not an error.
package typedstream

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// anchor marks the start of the text-bearing region in every known layout.
var anchor = []byte("NSString")

// Text length sanity bounds. Misaligned pattern matches tend to produce
// absurd lengths; anything outside this window is rejected and the next
// variant is tried.
const (
	minTextLen = 1
	maxTextLen = 10000
)

// variant describes one known byte layout: a marker sequence that precedes
// the length field. The byte after the marker is the length descriptor
// shared by all observed format versions (see decodeAt).
type variant struct {
	marker []byte
}

// Variants in priority order. The longer, more specific sequences go first
// so a short marker cannot shadow a longer one that matches at the same
// position.
var variants = []variant{
	{marker: []byte{0x67, 0x01, 0x94, 0x84, 0x01, 0x2b}},
	{marker: []byte{0x84, 0x01, 0x2b}},
	{marker: []byte{0x01, 0x94, 0x84, 0x01, 0x2b}},
	{marker: []byte{0x01, 0x95, 0x84, 0x01, 0x2b}},
}

// Decode extracts the plain-text payload from an attributedBody blob.
// The boolean is false when no recoverable text exists; Decode never panics.
func Decode(blob []byte) (string, bool) {
	if len(blob) == 0 {
		return "", false
	}

	anchorPos := bytes.Index(blob, anchor)
	if anchorPos == -1 {
		return "", false
	}

	for _, v := range variants {
		if text, ok := v.decode(blob, anchorPos); ok {
			return text, true
		}
	}

	return scan(blob, anchorPos)
}

// decode tries this variant's marker at its first occurrence past the anchor.
func (v variant) decode(blob []byte, anchorPos int) (string, bool) {
	rel := bytes.Index(blob[anchorPos:], v.marker)
	if rel == -1 {
		return "", false
	}
	return decodeAt(blob, anchorPos+rel+len(v.marker))
}

// decodeAt interprets the length descriptor at lengthPos and extracts the
// indicated byte range. Descriptor layout:
//
//	byte < 0x80: literal text length, text follows immediately
//	byte >= 0x80: low 7 bits count trailing length bytes (little-endian),
//	              with a one-byte separator before the text
//
// Trailing counts other than 1 or 2 are unknown layouts and rejected.
func decodeAt(blob []byte, lengthPos int) (string, bool) {
	if lengthPos >= len(blob) {
		return "", false
	}

	var textLen, textStart int
	lengthByte := blob[lengthPos]
	if lengthByte >= 0x80 {
		switch lengthByte & 0x7F {
		case 1:
			if lengthPos+2 >= len(blob) {
				return "", false
			}
			textLen = int(blob[lengthPos+1])
			textStart = lengthPos + 3
		case 2:
			if lengthPos+3 >= len(blob) {
				return "", false
			}
			textLen = int(blob[lengthPos+1]) | int(blob[lengthPos+2])<<8
			textStart = lengthPos + 4
		default:
			return "", false
		}
	} else {
		textLen = int(lengthByte)
		textStart = lengthPos + 1
	}

	if textLen < minTextLen || textLen > maxTextLen || textStart+textLen > len(blob) {
		return "", false
	}

	raw := blob[textStart : textStart+textLen]
	if !utf8.Valid(raw) {
		return "", false
	}

	text := sanitize(string(raw))
	if text == "" {
		return "", false
	}
	return text, true
}

// scan is the last-resort decoder: walk up to 100 offsets past the anchor,
// treating each byte as a tentative length, and accept the first candidate
// that decodes as UTF-8, contains something alphanumeric, and does not look
// like an Objective-C class name.
func scan(blob []byte, anchorPos int) (string, bool) {
	start := anchorPos + len(anchor)
	end := start + 100
	if end > len(blob)-10 {
		end = len(blob) - 10
	}

	for i := start; i < end; i++ {
		candLen := int(blob[i])
		if candLen < 2 || candLen > 200 {
			continue
		}
		textStart := i + 1
		if textStart+candLen > len(blob) {
			continue
		}
		raw := blob[textStart : textStart+candLen]
		if !utf8.Valid(raw) {
			continue
		}

		text := string(raw)
		if !hasAlnum(text) || strings.HasPrefix(text, "NS") || strings.HasPrefix(text, "__") {
			continue
		}

		clean := sanitize(text)
		if len(clean) >= 2 {
			return clean, true
		}
	}

	return "", false
}

// sanitize drops everything from the first control character on (control
// bytes mark end-of-text in the container, not mid-text noise). Newline,
// tab and carriage return are real content and exempt. The survivors are
// trimmed of surrounding whitespace.
func sanitize(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= 32 || r == '\n' || r == '\t' || r == '\r' {
			b.WriteRune(r)
			continue
		}
		break
	}
	return strings.TrimSpace(b.String())
}

func hasAlnum(s string) bool {
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
