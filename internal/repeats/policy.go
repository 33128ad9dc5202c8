package repeats

import (
	"errors"
	"fmt"

	"github.com/ppiankov/repcheck/internal/corpus"
)

// ErrFuzziness is returned for a fuzziness outside 0..100
var ErrFuzziness = errors.New("fuzziness must be between 0 and 100")

// Mode is the sentence-boundary behaviour selected by a fuzziness value
type Mode int

const (
	// Unrestricted accepts any repeated sub-span of a sentence
	Unrestricted Mode = iota
	// Bounded limits how much of the surrounding sentence may stay uncovered
	Bounded
	// SentenceExact only accepts whole sentences repeated as whole sentences
	SentenceExact
)

// Policy decides whether a phrase occurrence fits its sentence context
type Policy struct {
	Fuzziness    int
	Mode         Mode
	MaxUncovered float64
}

// NewPolicy maps a fuzziness percentage to a policy. 100 means whole
// sentences only, 0 means no limit, anything between bounds the number of
// sentence tokens left outside the phrase to (100/p - 1) per phrase token.
func NewPolicy(fuzziness int) (Policy, error) {
	switch {
	case fuzziness < 0 || fuzziness > 100:
		return Policy{}, fmt.Errorf("%w: %d", ErrFuzziness, fuzziness)
	case fuzziness == 100:
		return Policy{Fuzziness: fuzziness, Mode: SentenceExact}, nil
	case fuzziness == 0:
		return Policy{Fuzziness: fuzziness, Mode: Unrestricted}, nil
	default:
		return Policy{
			Fuzziness:    fuzziness,
			Mode:         Bounded,
			MaxUncovered: 100.0/float64(fuzziness) - 1,
		}, nil
	}
}

// Label is the fuzzy level as printed in report headers
func (p Policy) Label() string {
	switch p.Mode {
	case SentenceExact:
		return "sentence"
	case Unrestricted:
		return "no limit"
	default:
		return fmt.Sprintf("%d%%", p.Fuzziness)
	}
}

// GoodSize reports whether the span [start, start+length) is acceptable
// within the file range [first, end).
func (p Policy) GoodSize(c *corpus.Corpus, start, length, first, end int) bool {
	switch p.Mode {
	case SentenceExact:
		if start > first && !c.IsSentenceDelimiter(start-1) {
			return false
		}
		after := start + length
		return after >= end || c.IsSentenceDelimiter(after)
	case Bounded:
		budget := int(p.MaxUncovered * (float64(length) + 0.5))
		budget -= distanceBefore(c, start, first, budget)
		if budget >= 0 {
			budget -= distanceAfter(c, start+length, end, budget)
		}
		return budget >= 0
	default:
		return true
	}
}

// distanceBefore counts tokens between the previous sentence delimiter (or
// file start) and start, stopping once it exceeds limit.
func distanceBefore(c *corpus.Corpus, start, first, limit int) int {
	dist := 0
	for i := start - 1; i >= first && !c.IsSentenceDelimiter(i) && dist <= limit; i-- {
		dist++
	}
	return dist
}

func distanceAfter(c *corpus.Corpus, from, end, limit int) int {
	dist := 0
	for i := from; i < end && !c.IsSentenceDelimiter(i) && dist <= limit; i++ {
		dist++
	}
	return dist
}
