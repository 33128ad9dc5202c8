package repeats

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ppiankov/repcheck/internal/corpus"
)

// ErrInconsistency is returned when rolling back provisional claims does not
// restore the running total. It indicates corrupted marks.
var ErrInconsistency = errors.New("overlap counter inconsistency")

// Counter resolves overlapping phrase occurrences into real counts by
// claiming tokens in rank order.
type Counter struct {
	c       *corpus.Corpus
	policy  Policy
	phrases []Phrase
	logger  *slog.Logger
}

// NewCounter creates a counter over the given phrases. The slice is updated in place.
func NewCounter(c *corpus.Corpus, policy Policy, phrases []Phrase, logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Counter{c: c, policy: policy, phrases: phrases, logger: logger}
}

// candidates calls fn with every start position in [lo, hi) where the phrase
// could occur: derived from its anchor occurrences, confined to one file and
// accepted by the policy. Positions come in corpus order.
func (k *Counter) candidates(p *Phrase, lo, hi int, fn func(cand int)) {
	c := k.c
	for _, occ := range c.Types[p.Anchor].Occurrences {
		cand := int(occ) - p.Offset
		if cand < lo || cand+p.Length > hi {
			continue
		}
		first, end := c.FileRange(c.FileOf(cand))
		if cand+p.Length > end {
			continue
		}
		if !k.policy.GoodSize(c, cand, p.Length, first, end) {
			continue
		}
		fn(cand)
	}
}

// CountRaw sets Count and RealCount of every phrase to its number of
// positional matches, ignoring overlaps. It returns the sum.
func (k *Counter) CountRaw() int {
	total := 0
	for i := range k.phrases {
		p := &k.phrases[i]
		n := 0
		k.candidates(p, 0, len(k.c.Tokens), func(cand int) {
			if p.matchesAt(k.c, cand) {
				n++
			}
		})
		p.Count, p.RealCount = n, n
		total += n
	}
	return total
}

// claim marks the occurrence at cand with the given begin bit
func (k *Counter) claim(p *Phrase, cand int, begin corpus.Mark) {
	toks := k.c.Tokens
	toks[cand].Mark = begin
	for i := 1; i < p.Length; i++ {
		toks[cand+i].Mark = corpus.MarkMiddle
	}
	toks[cand+p.Length-1].Mark |= corpus.MarkEnd
}

// release frees the occurrence at cand if it still carries the marks placed
// by claim with the given begin bit. It reports whether it did.
func (k *Counter) release(p *Phrase, cand int, begin corpus.Mark) bool {
	toks := k.c.Tokens
	last := cand + p.Length - 1
	if toks[cand].Mark&begin == 0 || toks[last].Mark&corpus.MarkEnd == 0 {
		return false
	}
	for i := 1; i < p.Length-1; i++ {
		if toks[cand+i].Mark != corpus.MarkMiddle {
			return false
		}
	}
	if !p.matchesAt(k.c, cand) {
		return false
	}
	for i := cand; i <= last; i++ {
		toks[i].Mark = 0
	}
	return true
}

// CountSingle resets all marks, then lets each phrase in order claim its free
// occurrences. A phrase left with a single occurrence gives it back and
// counts zero. It returns the total real count.
func (k *Counter) CountSingle(order []int) int {
	k.c.ResetMarks()
	total := 0
	for _, idx := range order {
		p := &k.phrases[idx]
		p.RealCount = 0
		lastClaim := -1
		k.candidates(p, 0, len(k.c.Tokens), func(cand int) {
			if p.matchesAt(k.c, cand) && p.freeAt(k.c, cand) {
				k.claim(p, cand, corpus.MarkBegin)
				p.RealCount++
				lastClaim = cand
			}
		})
		if p.RealCount == 1 {
			k.release(p, lastClaim, corpus.MarkBegin)
			p.RealCount = 0
		}
		total += p.RealCount
	}
	k.countUnmatched()
	return total
}

// CountCrossDocument counts only phrases that occur in every file. Each file
// is claimed provisionally; the first file without a free occurrence rolls
// back every provisional claim of the phrase.
func (k *Counter) CountCrossDocument(order []int) (int, error) {
	c := k.c
	c.ResetMarks()
	total := 0
	numFiles := c.NumFiles()

	for _, idx := range order {
		p := &k.phrases[idx]
		p.RealCount = 0
		before := total
		var undo []int

		complete := numFiles > 0
		for file := 0; file < numFiles; file++ {
			first, end := c.FileRange(file)
			n := 0
			k.candidates(p, first, end, func(cand int) {
				if p.matchesAt(c, cand) && p.freeAt(c, cand) {
					k.claim(p, cand, corpus.MarkTentative)
					undo = append(undo, cand)
					n++
				}
			})
			p.RealCount += n
			total += n
			if n == 0 {
				complete = false
				break
			}
		}

		if complete && p.RealCount > 1 {
			for _, cand := range undo {
				c.Tokens[cand].Mark = c.Tokens[cand].Mark&^corpus.MarkTentative | corpus.MarkBegin
			}
			continue
		}

		for i := len(undo) - 1; i >= 0; i-- {
			if k.release(p, undo[i], corpus.MarkTentative) {
				p.RealCount--
				total--
			}
		}
		if total != before || p.RealCount != 0 {
			k.logger.Error("rollback left claims behind",
				slog.Int("phrase", idx),
				slog.Int("real_count", p.RealCount),
				slog.Int("total", total),
				slog.Int("expected", before))
			return total, fmt.Errorf("%w: phrase %d kept %d claims after rollback", ErrInconsistency, idx, p.RealCount)
		}
	}
	k.countUnmatched()
	return total, nil
}

// Remark clears all marks and claims again for every phrase with a real count
// above one, leaving the counts untouched.
func (k *Counter) Remark(order []int) {
	k.c.ResetMarks()
	for _, idx := range order {
		p := &k.phrases[idx]
		if p.RealCount <= 1 {
			continue
		}
		k.candidates(p, 0, len(k.c.Tokens), func(cand int) {
			if p.matchesAt(k.c, cand) && p.freeAt(k.c, cand) {
				k.claim(p, cand, corpus.MarkBegin)
			}
		})
	}
	k.countUnmatched()
}

// countUnmatched stores the number of free non-delimiter tokens per file
func (k *Counter) countUnmatched() {
	c := k.c
	for file := 0; file < c.NumFiles(); file++ {
		first, end := c.FileRange(file)
		n := 0
		for i := first; i < end; i++ {
			if c.Tokens[i].Mark.Free() && !c.IsSentenceDelimiter(i) {
				n++
			}
		}
		c.Files[file].Unmatched = n
	}
}

// Unmatched returns the total of free non-delimiter tokens after the last pass
func (k *Counter) Unmatched() int {
	total := 0
	for file := 0; file < k.c.NumFiles(); file++ {
		total += k.c.Files[file].Unmatched
	}
	return total
}
