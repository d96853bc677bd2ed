package csv

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// decodeReader wraps src in a decoder for the given WHATWG encoding label.
// Empty and UTF-8 labels return src unchanged.
func decodeReader(src io.Reader, label string) (io.Reader, error) {
	label = strings.TrimSpace(label)
	switch strings.ToLower(label) {
	case "", "utf-8", "utf8":
		return src, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", label, err)
	}
	return transform.NewReader(src, enc.NewDecoder()), nil
}

// NormalizeHeader lowercases h, strips diacritics ("Číslo vozu" ->
// "cislo_vozu") and replaces every run of characters outside [a-z0-9_]
// with a single '_'. Leading and trailing '_' are dropped.
func NormalizeHeader(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, h)
	if err != nil {
		folded = h
	}

	var b strings.Builder
	b.Grow(len(folded))
	underscore := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			underscore = r == '_'
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
