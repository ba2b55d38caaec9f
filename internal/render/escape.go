package render

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Escape makes text safe to print: backslashes are doubled, newlines,
// carriage returns and printable ASCII pass through, every other code
// point becomes \xHH. Bytes that are not valid UTF-8 are escaped as bytes.
//
// Non-ASCII runes are escaped by code point, so the result does not decode
// back to the original bytes.
func Escape(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&sb, `\x%02x`, text[i])
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n' || r == '\r' || (r >= 32 && r <= 126):
			sb.WriteRune(r)
		default:
			fmt.Fprintf(&sb, `\x%02x`, r)
		}
		i += size
	}
	return sb.String()
}
