package ascii

import (
	"strings"
	"unicode"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
)

// Marker starts a color directive. It must be followed by a single digit.
const Marker = '$'

// White is used for any directive that selects a missing or invalid color.
const White = "#ffffff"

// Reset clears all terminal attributes.
const Reset = termenv.CSI + termenv.ResetSeq + "m"

// Palette is an ordered list of normalized #rrggbb colors. Directives are
// 1-indexed into it. An empty entry marks a token that failed to parse.
type Palette []string

// ParsePalette splits a color string on whitespace and commas. Tokens that
// are not valid hex colors keep their position but resolve to white.
func ParsePalette(colors string) Palette {
	tokens := strings.FieldsFunc(colors, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	palette := make(Palette, 0, len(tokens))
	for _, token := range tokens {
		c, err := colorful.Hex(token)
		if err != nil {
			palette = append(palette, "")
			continue
		}
		palette = append(palette, c.Hex())
	}
	return palette
}

// Hex returns the nth color (1-indexed), or White when n is out of range or
// the token at that position was invalid.
func (p Palette) Hex(n int) string {
	if n < 1 || n > len(p) || p[n-1] == "" {
		return White
	}
	return p[n-1]
}

// Sequence returns the truecolor foreground escape for the nth color.
func (p Palette) Sequence(n int) string {
	return Sequence(p.Hex(n))
}

// Sequence returns the truecolor foreground escape for a #rrggbb color.
// Invalid input falls back to white.
func Sequence(hex string) string {
	if _, err := colorful.Hex(hex); err != nil {
		hex = White
	}
	return termenv.CSI + termenv.TrueColor.Color(hex).Sequence(false) + "m"
}

// Colorize replaces $n directives in text with color escapes from palette.
//
// The first palette color is active at the start. A directive switches the
// active color and stays in effect across lines; every non-empty line opens
// with the active color, before any directive at its start, so each line
// renders correctly on its own. A marker
// not followed by a digit is copied through unchanged. The output always
// ends with Reset.
func Colorize(text string, palette Palette) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)

	active := palette.Sequence(1)
	lineStart := true
	for i := 0; i < len(text); i++ {
		c := text[i]
		directive := c == Marker && i+1 < len(text) && isDigit(text[i+1])

		if lineStart && c != '\n' {
			lineStart = false
			b.WriteString(active)
		}

		switch {
		case directive:
			active = palette.Sequence(int(text[i+1] - '0'))
			b.WriteString(active)
			i++
		case c == '\n':
			b.WriteByte(c)
			lineStart = true
		default:
			b.WriteByte(c)
		}
	}
	b.WriteString(Reset)
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
