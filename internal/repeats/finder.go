package repeats

import (
	"log/slog"

	"github.com/ppiankov/repcheck/internal/corpus"
)

// Options controls phrase discovery
type Options struct {
	MinLength     int
	MaxLength     int // 0 means unlimited
	OverlapSearch bool
	Policy        Policy
}

// Finder discovers maximal repeated phrases sentence by sentence
type Finder struct {
	c      *corpus.Corpus
	opts   Options
	arena  *arena
	probes int
	logger *slog.Logger
}

// NewFinder creates a finder over a corpus whose types are built
func NewFinder(c *corpus.Corpus, opts Options, logger *slog.Logger) *Finder {
	if opts.MinLength < 1 {
		opts.MinLength = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{c: c, opts: opts, arena: newArena(), logger: logger}
}

// Find returns every repeated phrase, grouped by anchor type in type order
func (f *Finder) Find() []Phrase {
	c := f.c
	for file := 0; file < c.NumFiles(); file++ {
		first, end := c.FileRange(file)
		windowStart := first
		for i := first; i < end; i++ {
			if c.IsSentenceDelimiter(i) {
				f.window(windowStart, i-1)
				windowStart = i + 1
			}
		}
		f.window(windowStart, end-1)
	}

	phrases := f.arena.ordered(len(c.Types))
	f.logger.Debug("phrase discovery complete",
		slog.Int("phrases", len(phrases)),
		slog.Int("probes", f.probes),
		slog.String("fuzzy", f.opts.Policy.Label()))
	return phrases
}

// window searches the sentence [lo, hi]
func (f *Finder) window(lo, hi int) {
	if hi < lo {
		return
	}
	if f.opts.Policy.Mode == SentenceExact {
		f.wholeSentence(lo, hi)
		return
	}
	f.within(lo, hi, true, true)
}

func (f *Finder) startEligible(i, lo int, startOK bool) bool {
	return (i == lo && startOK) || f.c.IsWord(i)
}

func (f *Finder) endEligible(i, hi int, endOK bool) bool {
	return (i == hi && endOK) || f.c.IsWord(i)
}

// within probes sub-spans of [lo, hi], longest first from each start. A probe
// that hits a token occurring only once splits the window around it, since no
// repeat can cross that token. startOK and endOK say whether lo and hi are the
// edges of the original sentence.
func (f *Finder) within(lo, hi int, startOK, endOK bool) {
	minLen, maxLen := f.opts.MinLength, f.opts.MaxLength
	pivot := -1

	for start := lo; start+minLen-1 <= hi && pivot < 0; {
		if !f.startEligible(start, lo, startOK) {
			start++
			continue
		}
		last := hi
		if maxLen > 0 && last-start+1 > maxLen {
			last = start + maxLen - 1
		}

		resume := -1
		for end := last; end >= start+minLen-1; end-- {
			if !f.endEligible(end, hi, endOK) {
				continue
			}
			found, unique := f.probe(start, end)
			if unique >= 0 {
				pivot = unique
				break
			}
			if found {
				resume = end + 1
				if !f.opts.OverlapSearch {
					break
				}
			}
		}

		if resume >= 0 && !f.opts.OverlapSearch {
			start = resume
		} else {
			start++
		}
	}

	if pivot < 0 {
		return
	}
	if pivot > lo {
		f.within(lo, pivot-1, startOK, false)
	}
	if pivot < hi {
		f.within(pivot+1, hi, false, endOK)
	}
}

// wholeSentence registers [lo, hi] when it reappears as a whole sentence
func (f *Finder) wholeSentence(lo, hi int) {
	length := hi - lo + 1
	if length < f.opts.MinLength || (f.opts.MaxLength > 0 && length > f.opts.MaxLength) {
		return
	}
	f.probe(lo, hi)
}

// rarest returns the position of the first least frequent token in [start, end]
func (f *Finder) rarest(start, end int) (int, int) {
	pos, lowest := start, f.c.Frequency(start)
	for i := start + 1; i <= end; i++ {
		if fr := f.c.Frequency(i); fr < lowest {
			pos, lowest = i, fr
		}
	}
	return pos, lowest
}

// probe looks for another occurrence of [start, end]. It returns whether one
// was found, and the position of a frequency-one member if the span holds one
// (-1 otherwise). Only the first matching occurrence is registered.
func (f *Finder) probe(start, end int) (bool, int) {
	f.probes++
	c := f.c
	anchorPos, lowest := f.rarest(start, end)
	if lowest == 1 {
		return false, anchorPos
	}

	offset := anchorPos - start
	length := end - start + 1
	anchor := c.Tokens[anchorPos].Type
	p := Phrase{Start: start, Length: length}

	for _, occ := range c.Types[anchor].Occurrences {
		if int(occ) == anchorPos {
			continue
		}
		cand := int(occ) - offset
		if cand < 0 || cand+length > len(c.Tokens) {
			continue
		}
		first, fileEnd := c.FileRange(c.FileOf(cand))
		if cand+length > fileEnd {
			continue
		}
		if !f.opts.Policy.GoodSize(c, cand, length, first, fileEnd) {
			continue
		}
		if p.matchesAt(c, cand) {
			f.arena.add(c, anchor, start, offset, length)
			return true, -1
		}
	}
	return false, -1
}
