package ics

import "strings"

// unescapeText reverses the RFC 5545 §3.3.11 TEXT escaping go-ical's
// Props.SetText applies on encode: backslash, comma, and semicolon are
// un-escaped, and the literal two-character sequence "\n" becomes a
// real newline.
func unescapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case ',':
				b.WriteByte(',')
				i++
				continue
			case ';':
				b.WriteByte(';')
				i++
				continue
			case 'n', 'N':
				b.WriteByte('\n')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
