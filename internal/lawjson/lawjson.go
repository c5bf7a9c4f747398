// Package lawjson decodes cached law payloads. Well-formed JSON is decoded
// directly; anything else goes through Repair first, which accepts the
// legacy forms found in older caches: Python dict literals (single quotes,
// True/False/None), raw control characters inside strings, unusual Unicode
// spaces and trailing commas.
package lawjson

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/eulex/internal/domain"
)

// Decode unmarshals data into v, falling back to Repair when strict decoding
// fails. Errors wrap domain.ErrMalformedPayload.
func Decode(data []byte, v any) error {
	strictErr := json.Unmarshal(data, v)
	if strictErr == nil {
		return nil
	}
	repaired := Repair(string(data))
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformedPayload, err)
	}
	return nil
}

// Repair rewrites a loosely formatted JSON or Python-literal payload into
// strict JSON. It never fails; the result may still be invalid JSON when the
// input is beyond repair.
func Repair(s string) string {
	s = strings.ToValidUTF8(s, "")
	var b strings.Builder
	b.Grow(len(s) + len(s)/8)

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"' || r == '\'':
			i = copyString(&b, s, i+size, r)
			continue
		case r == ',':
			if closesNext(s[i+size:]) {
				i += size
				continue
			}
			b.WriteRune(r)
		case isIdentStart(r):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			b.WriteString(literal(s[i:j]))
			i = j
			continue
		case isOddSpace(r):
			b.WriteByte(' ')
		case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
			// dropped
		default:
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

// copyString emits the string literal starting at s[i] (just past the
// opening quote) as a double-quoted JSON string and returns the index after
// the closing quote.
func copyString(b *strings.Builder, s string, i int, quote rune) int {
	b.WriteByte('"')
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == quote:
			b.WriteByte('"')
			return i + size
		case r == '\\' && i+1 < len(s):
			next := s[i+1]
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				b.WriteByte('\\')
				b.WriteByte(next)
			case 'u':
				if i+6 <= len(s) && isHex(s[i+2:i+6]) {
					b.WriteString(s[i : i+6])
					i += 6
					continue
				}
				b.WriteString(`\\u`)
			case '\'':
				b.WriteByte('\'')
			case 'x':
				if i+4 <= len(s) && isHex(s[i+2:i+4]) {
					b.WriteString(`\u00`)
					b.WriteString(s[i+2 : i+4])
					i += 4
					continue
				}
				b.WriteString(`\\x`)
			default:
				b.WriteString(`\\`)
				b.WriteByte(next)
			}
			i += 2
			continue
		case r == '"':
			b.WriteString(`\"`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			// dropped
		case isOddSpace(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
		i += size
	}
	// Unterminated string: close it so the decoder reports a structural error
	// instead of swallowing the rest.
	b.WriteByte('"')
	return i
}

func literal(word string) string {
	switch word {
	case "True":
		return "true"
	case "False":
		return "false"
	case "None", "nan", "NaN":
		return "null"
	}
	return word
}

func closesNext(rest string) bool {
	t := strings.TrimLeft(rest, " \t\r\n")
	return strings.HasPrefix(t, "}") || strings.HasPrefix(t, "]")
}

func isIdentStart(r rune) bool {
	return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z'
}

func isIdentByte(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func isOddSpace(r rune) bool {
	switch {
	case r == 0x00A0, r == 0x1680, r == 0x180E, r == 0x202F, r == 0x205F, r == 0x3000, r == 0xFEFF:
		return true
	case r >= 0x2000 && r <= 0x200B:
		return true
	}
	return false
}
