package corpus

import (
	"sort"
)

// Source is one input document
type Source struct {
	Name string
	Data []byte
}

// Mark records how a token is claimed by a counted phrase occurrence
type Mark uint8

const (
	// MarkBegin marks the first token of a confirmed occurrence
	MarkBegin Mark = 1 << iota
	// MarkTentative marks the first token of a provisional cross-document occurrence
	MarkTentative
	// MarkMiddle marks an inner token
	MarkMiddle
	// MarkEnd marks the last token. A one-token occurrence carries a begin bit and MarkEnd.
	MarkEnd
)

// Free reports whether the token is unclaimed
func (m Mark) Free() bool { return m == 0 }

// Token is one lexical unit. Start and End are byte offsets into the source
// document, End exclusive.
type Token struct {
	Type  int32
	Start int64
	End   int64
	Mark  Mark

	textOff int32
	textLen int32
}

// Type is an equivalence class of tokens sharing a comparison key
type Type struct {
	Text              string
	IsWord            bool
	SentenceDelimiter bool
	// Occurrences holds token indices in corpus order
	Occurrences []int32
}

// Frequency is the number of tokens of this type
func (t *Type) Frequency() int { return len(t.Occurrences) }

// FileData describes one input file within the token array
type FileData struct {
	Name               string
	First              int
	SentenceSeparators int
	Unmatched          int
}

// Corpus holds everything one analysis works on. It is built per run and
// never shared between runs.
type Corpus struct {
	Sources []Source
	Tokens  []Token
	Types   []Type
	// Files has one entry per source plus a sentinel whose First is len(Tokens)
	Files []FileData
	Text  []byte

	Separators       int
	LowestFrequency  int
	LowestType       int
	HighestFrequency int
	HighestType      int
	AverageFrequency float64
}

// NumFiles returns the number of input files
func (c *Corpus) NumFiles() int {
	if len(c.Files) == 0 {
		return 0
	}
	return len(c.Files) - 1
}

// FileRange returns the half-open token range of file f
func (c *Corpus) FileRange(f int) (first, end int) {
	return c.Files[f].First, c.Files[f+1].First
}

// FileOf returns the file containing token i
func (c *Corpus) FileOf(i int) int {
	n := c.NumFiles()
	// first file whose successor starts after i
	return sort.Search(n, func(f int) bool { return c.Files[f+1].First > i })
}

// TokenText returns the materialized text of token i
func (c *Corpus) TokenText(i int) string {
	tok := &c.Tokens[i]
	return string(c.Text[tok.textOff : tok.textOff+tok.textLen])
}

// IsSentenceDelimiter reports whether token i ends a sentence
func (c *Corpus) IsSentenceDelimiter(i int) bool {
	return c.Types[c.Tokens[i].Type].SentenceDelimiter
}

// IsWord reports whether token i is an alphabetic word
func (c *Corpus) IsWord(i int) bool {
	return c.Types[c.Tokens[i].Type].IsWord
}

// Frequency returns the frequency of the type of token i
func (c *Corpus) Frequency(i int) int {
	return len(c.Types[c.Tokens[i].Type].Occurrences)
}

// ResetMarks frees every token
func (c *Corpus) ResetMarks() {
	for i := range c.Tokens {
		c.Tokens[i].Mark = 0
	}
}
