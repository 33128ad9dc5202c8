package repeats

import (
	"strings"

	"github.com/ppiankov/repcheck/internal/corpus"
)

// Phrase is a repeated token sequence. Start is the first token of the
// exemplar occurrence; Anchor is its rarest member type, found at Start+Offset.
type Phrase struct {
	Anchor int32
	Start  int
	Offset int
	Length int

	Count     int
	RealCount int

	Weight                    float64
	WorseLength               int
	AccumulatedRepetitiveness float64
}

// Types returns the type sequence of the phrase
func (p *Phrase) Types(c *corpus.Corpus) []int32 {
	out := make([]int32, p.Length)
	for i := range out {
		out[i] = c.Tokens[p.Start+i].Type
	}
	return out
}

// Text joins the canonical spellings of the phrase's types with sep
func (p *Phrase) Text(c *corpus.Corpus, sep string) string {
	parts := make([]string, p.Length)
	for i := range parts {
		parts[i] = c.Types[c.Tokens[p.Start+i].Type].Text
	}
	return strings.Join(parts, sep)
}

// matchesAt reports whether the tokens starting at cand repeat the exemplar
func (p *Phrase) matchesAt(c *corpus.Corpus, cand int) bool {
	if cand == p.Start {
		return true
	}
	for i := 0; i < p.Length; i++ {
		if c.Tokens[cand+i].Type != c.Tokens[p.Start+i].Type {
			return false
		}
	}
	return true
}

// freeAt reports whether no token of the occurrence at cand is claimed
func (p *Phrase) freeAt(c *corpus.Corpus, cand int) bool {
	for i := 0; i < p.Length; i++ {
		if !c.Tokens[cand+i].Mark.Free() {
			return false
		}
	}
	return true
}

// arena stores phrases in registration order with a per-anchor index for
// deduplication.
type arena struct {
	phrases  []Phrase
	byAnchor map[int32][]int
}

func newArena() *arena {
	return &arena{byAnchor: make(map[int32][]int)}
}

// add registers a phrase unless its anchor already owns one with the same
// offset, length and type sequence.
func (a *arena) add(c *corpus.Corpus, anchor int32, start, offset, length int) bool {
	for _, idx := range a.byAnchor[anchor] {
		q := &a.phrases[idx]
		if q.Offset == offset && q.Length == length && q.matchesAt(c, start) {
			return false
		}
	}
	a.byAnchor[anchor] = append(a.byAnchor[anchor], len(a.phrases))
	a.phrases = append(a.phrases, Phrase{
		Anchor: anchor,
		Start:  start,
		Offset: offset,
		Length: length,
	})
	return true
}

// ordered returns the phrases grouped by anchor type in type order
func (a *arena) ordered(numTypes int) []Phrase {
	out := make([]Phrase, 0, len(a.phrases))
	for t := 0; t < numTypes; t++ {
		for _, idx := range a.byAnchor[int32(t)] {
			out = append(out, a.phrases[idx])
		}
	}
	return out
}
