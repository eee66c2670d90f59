package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is the group for empty titles and titles not starting with a Latin
// letter.
const Fallback = '#'

// letterFolds covers Latin letters that carry no combining mark under NFKD.
var letterFolds = map[rune]rune{
	'Ø': 'O', 'ø': 'o',
	'Æ': 'A', 'æ': 'a',
	'Œ': 'O', 'œ': 'o',
	'ß': 's',
	'Ł': 'L', 'ł': 'l',
	'Đ': 'D', 'đ': 'd',
	'Ð': 'D', 'ð': 'd',
	'Þ': 'T', 'þ': 't',
	'ı': 'i',
}

func foldChain() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Fold strips diacritics and compatibility forms from s.
func Fold(s string) string {
	folded, _, err := transform.String(foldChain(), s)
	if err != nil {
		return s
	}
	return strings.Map(func(r rune) rune {
		if repl, ok := letterFolds[r]; ok {
			return repl
		}
		return r
	}, folded)
}

// FirstChar returns the first non-space rune of s after folding, or Fallback.
func FirstChar(s string) rune {
	for _, r := range Fold(strings.TrimSpace(s)) {
		return r
	}
	return Fallback
}

// GroupName returns the first-letter index group for a title: the upper-case
// ASCII letter after folding, or "#" for digits, symbols, other scripts, and
// empty titles.
func GroupName(title string) string {
	c := FirstChar(title)
	if !unicode.Is(unicode.Latin, c) || c > unicode.MaxASCII {
		return string(Fallback)
	}
	return string(unicode.ToUpper(c))
}
