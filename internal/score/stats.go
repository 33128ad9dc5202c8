package score

import (
	"math"

	"github.com/ppiankov/repcheck/internal/corpus"
	"github.com/ppiankov/repcheck/internal/model"
	"github.com/ppiankov/repcheck/internal/repeats"
)

// RegressionFormula is the fitted relation reported in diagnostics
const RegressionFormula = "phrase length = b + m * log(phrase #)"

// Aggregates are the text-length totals behind the repetitiveness ratio
type Aggregates struct {
	Fiducial       int
	Reduced        int
	Unmatched      int
	Repetitiveness float64
}

// Aggregate sums phrase coverage. Fiducial counts every counted occurrence,
// reduced counts each counted phrase once; both add the unmatched tokens.
func Aggregate(phrases []repeats.Phrase, unmatched int) Aggregates {
	a := Aggregates{Fiducial: unmatched, Reduced: unmatched, Unmatched: unmatched}
	for i := range phrases {
		p := &phrases[i]
		if p.RealCount > 0 {
			a.Fiducial += p.Length * p.RealCount
			a.Reduced += p.Length
		}
	}
	a.Repetitiveness = 1.0
	if a.Reduced > 0 {
		a.Repetitiveness = float64(a.Fiducial) / float64(a.Reduced)
	}
	return a
}

// Alikeness is the share of a file's tokens covered by counted phrases
func Alikeness(f corpus.FileData, tokens int) float64 {
	if tokens == 0 {
		return 0
	}
	return 1 - float64(f.Unmatched)/float64(tokens)
}

// Accumulate sets, for each phrase in rank order with a real count above
// one, the repetitiveness the text would have if only that phrase and the
// ones ranked above it were collapsed:
//
//	(tokens - separators) / (unmatched + sum of lengths so far + length*count of worse phrases)
func Accumulate(c *corpus.Corpus, phrases []repeats.Phrase, order []int, unmatched int) {
	worse := 0
	for k := len(order) - 1; k >= 0; k-- {
		p := &phrases[order[k]]
		if p.RealCount > 1 {
			p.WorseLength = worse
			worse += p.Length * p.RealCount
		}
	}

	text := float64(len(c.Tokens) - c.Separators)
	reduced := unmatched
	for _, idx := range order {
		p := &phrases[idx]
		if p.RealCount <= 1 {
			continue
		}
		reduced += p.Length
		p.AccumulatedRepetitiveness = text / float64(reduced+p.WorseLength)
	}
}

// Fit regresses phrase length on ln(rank) over phrases with a real count
// above one and more than two words. Rank counts only those phrases.
func Fit(phrases []repeats.Phrase, order []int) model.Regression {
	var n, sx, sy, sxx, sxy float64
	rank := 0
	for _, idx := range order {
		p := &phrases[idx]
		if p.RealCount <= 1 || p.Length <= 2 {
			continue
		}
		rank++
		x := math.Log(float64(rank))
		y := float64(p.Length)
		n++
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}

	reg := model.Regression{Points: rank, Formula: RegressionFormula}
	den := n*sxx - sx*sx
	if n < 2 || den == 0 {
		return reg
	}
	reg.Defined = true
	reg.Slope = (n*sxy - sx*sy) / den
	reg.Intercept = (sy - reg.Slope*sx) / n
	return reg
}
