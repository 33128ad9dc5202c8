package corpus

import (
	"cmp"
	"slices"

	"github.com/ppiankov/repcheck/internal/charclass"
)

// BuildTypes groups tokens into types and fills occurrence lists, per-file
// separator counts and frequency statistics.
//
// Tokens are ordered by comparison key, then by whether the spelling starts
// with an upper-case rune (those first), then by position. The last spelling
// of each key run names the type, so a lower-case spelling wins.
func BuildTypes(c *Corpus, table *charclass.Table, caseSensitive bool) {
	if table == nil {
		table = charclass.Default()
	}
	n := len(c.Tokens)

	keys := make([]string, n)
	upper := make([]bool, n)
	folder := charclass.NewFolder()
	for i := range c.Tokens {
		text := c.TokenText(i)
		if caseSensitive {
			keys[i] = text
		} else {
			keys[i] = folder.Key(text)
		}
		upper[i] = charclass.StartsUpper(text)
	}

	order := make([]int32, n)
	for i := range order {
		order[i] = int32(i)
	}
	slices.SortFunc(order, func(a, b int32) int {
		if d := cmp.Compare(keys[a], keys[b]); d != 0 {
			return d
		}
		if upper[a] != upper[b] {
			if upper[a] {
				return -1
			}
			return 1
		}
		return cmp.Compare(a, b)
	})

	c.Types = c.Types[:0]
	freq := make([]int, 0)
	for i := 0; i < n; {
		j := i + 1
		for j < n && keys[order[j]] == keys[order[i]] {
			j++
		}
		t := int32(len(c.Types))
		for k := i; k < j; k++ {
			c.Tokens[order[k]].Type = t
		}
		text := c.TokenText(int(order[j-1]))
		c.Types = append(c.Types, Type{
			Text:              text,
			IsWord:            charclass.IsWord(text),
			SentenceDelimiter: table.IsSentenceDelimiter(text[0]),
		})
		freq = append(freq, j-i)
		i = j
	}

	for t := range c.Types {
		c.Types[t].Occurrences = make([]int32, 0, freq[t])
	}
	for i := range c.Tokens {
		t := c.Tokens[i].Type
		c.Types[t].Occurrences = append(c.Types[t].Occurrences, int32(i))
	}

	c.LowestFrequency, c.HighestFrequency = 0, 0
	c.LowestType, c.HighestType = -1, -1
	for t, f := range freq {
		if c.LowestType < 0 || f < c.LowestFrequency {
			c.LowestFrequency, c.LowestType = f, t
		}
		if c.HighestType < 0 || f > c.HighestFrequency {
			c.HighestFrequency, c.HighestType = f, t
		}
	}
	c.AverageFrequency = 0
	if len(c.Types) > 0 {
		c.AverageFrequency = float64(n) / float64(len(c.Types))
	}

	c.Separators = 0
	for f := 0; f < c.NumFiles(); f++ {
		first, end := c.FileRange(f)
		seps := 0
		for i := first; i < end; i++ {
			if c.IsSentenceDelimiter(i) {
				seps++
			}
		}
		c.Files[f].SentenceSeparators = seps
		c.Separators += seps
	}
}
