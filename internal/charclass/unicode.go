package charclass

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// IsWord reports whether every rune of s is alphabetic
func IsWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// StartsUpper reports whether the first rune of s is upper case
func StartsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

// Folder produces case-insensitive comparison keys. A Folder is not safe for
// concurrent use.
type Folder struct {
	caser cases.Caser
}

// NewFolder returns a Folder using full Unicode case folding
func NewFolder() *Folder {
	return &Folder{caser: cases.Fold()}
}

// Key returns the folded form of s
func (f *Folder) Key(s string) string {
	return f.caser.String(s)
}

// Runes splits s into its codepoints as strings
func Runes(s string) []string {
	out := make([]string, 0, utf8.RuneCountInString(s))
	for len(s) > 0 {
		_, size := utf8.DecodeRuneInString(s)
		out = append(out, s[:size])
		s = s[size:]
	}
	return out
}
