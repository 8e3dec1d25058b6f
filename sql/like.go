package sql

import (
	"strings"
	"unicode/utf8"
)

// ----------------------------------------------------------------------------
//
// SQL Like operator. The pattern is translated into an anchored regex which
// is matched with the awk *~* operator at runtime.
//
// The wildcard is relatively simple, basically supports 2 placeholder
//
// 1. %, represents zero, one or more sequences of any characters
// 2. _, represents exactly one character
// 3. escaping is done by %[x] syntax which matches x literally. There must be
//    exactly one char inside, otherwise the % is treated as a wildcard
//
// ----------------------------------------------------------------------------

func likeEncode(buf *strings.Builder, c rune) {
	switch c {
	case '[', ']', '\\', '^', '-':
		buf.WriteByte('\\')
		buf.WriteRune(c)
	default:
		buf.WriteByte('[')
		buf.WriteRune(c)
		buf.WriteByte(']')
	}
}

func LikeToRegex(
	input string,
) string {
	buf := strings.Builder{}
	buf.WriteString("^")

	for i := 0; i < len(input); {
		c, sz := utf8.DecodeRuneInString(input[i:])
		if c == utf8.RuneError {
			i++
			continue // skip it
		}

		switch c {
		case '%':
			// %[x]
			if i+1 < len(input) && input[i+1] == '[' {
				inner, isz := utf8.DecodeRuneInString(input[i+2:])
				end := i + 2 + isz
				if inner != utf8.RuneError && end < len(input) && input[end] == ']' {
					likeEncode(&buf, inner)
					i = end + 1
					continue
				}
			}
			buf.WriteString(".*")

		case '_':
			buf.WriteString(".")

		default:
			likeEncode(&buf, c)
		}

		i += sz
	}

	buf.WriteString("$")
	return buf.String()
}
