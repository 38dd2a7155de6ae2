// Package zak decodes the legacy ZAK text reports produced by the
// rheograph software: a single-byte-encoded printout with a tabular
// measurement region and a free-form clinical conclusion. Decoding is a
// pure function over the input buffer; missing report pieces are normal,
// representable outcomes.
package zak

import (
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
)

// decodeBytes decodes raw report bytes with the given single-byte codepage
// decoder. The format is not expected to be UTF-8, but some tooling
// re-saves files, so a decode failure falls back to the raw bytes.
func decodeBytes(raw []byte, dec *encoding.Decoder) string {
	if dec == nil {
		return string(raw)
	}
	out, err := dec.Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// NormalizeText unifies line endings to LF and strips trailing whitespace
// from every line. The transform is idempotent.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// Normalize decodes raw report bytes and normalizes the text.
func Normalize(raw []byte, dec *encoding.Decoder) string {
	return NormalizeText(decodeBytes(raw, dec))
}

// CollapseAcronyms joins runs of single uppercase letters separated by
// single spaces into one token. The legacy typesetting renders headings as
// individually spaced capitals ("З А К Л Ю Ч Е Н И Е"), with a double
// space standing where the original had a section/body separator; after a
// collapsed run a double space becomes a single one.
func CollapseAcronyms(s string) string {
	runes := []rune(s)
	var b strings.Builder
	i := 0
	for i < len(runes) {
		if !isLoneUpper(runes, i) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		// Extend the run: letter, single space, letter, ...
		end := i
		for end+2 < len(runes) && runes[end+1] == ' ' && isLoneUpper(runes, end+2) {
			end += 2
		}
		if end == i {
			b.WriteRune(runes[i])
			i++
			continue
		}
		for j := i; j <= end; j += 2 {
			b.WriteRune(runes[j])
		}
		i = end + 1
		// A double space after the run was the real separator.
		if i+1 < len(runes) && runes[i] == ' ' && runes[i+1] == ' ' {
			b.WriteRune(' ')
			i += 2
		}
	}
	return b.String()
}

// isLoneUpper reports whether runes[i] is an uppercase letter standing
// alone: bounded by spaces or the string edges.
func isLoneUpper(runes []rune, i int) bool {
	if !unicode.IsUpper(runes[i]) || !unicode.IsLetter(runes[i]) {
		return false
	}
	if i > 0 && runes[i-1] != ' ' {
		return false
	}
	if i+1 < len(runes) && runes[i+1] != ' ' {
		return false
	}
	return true
}

// squash removes all whitespace from s. Used for marker matching on lines
// that may or may not be spaced-capital typeset.
func squash(s string) string {
	var b strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
