package score

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrUnknownModel is returned by ParseModel for an unrecognised name
var ErrUnknownModel = errors.New("unknown weight model")

// Model selects how phrases are weighted for ranking
type Model int

const (
	Frequency Model = iota + 1
	Length
	FrequencyLength
	InverseWordFrequency
	FrequencyRatio
	Entropy
	EntropyLogLength
	CountReduced
	Likelihood2005
	Likelihood2005b
)

var modelInfo = map[Model]struct {
	short string
	desc  string
}{
	Frequency:            {"F", "frequency"},
	Length:               {"L", "length"},
	FrequencyLength:      {"FL", "frequency * length"},
	InverseWordFrequency: {"FL/wf", "frequency * length * average of inverse word frequency"},
	FrequencyRatio:       {"FLR", "frequency * length * product of (average type frequency / word frequency)"},
	Entropy:              {"FLE", "frequency * length * average of word entropy"},
	EntropyLogLength:     {"FLElogL", "frequency * log(length) * sum of word entropy"},
	CountReduced:         {"FL/wfP", "real count * length * average of inverse word frequency"},
	Likelihood2005:       {"2005", "negative log likelihood of m non-overlapping occurrences"},
	Likelihood2005b:      {"2005b", "negative log likelihood with word frequencies decremented per occurrence"},
}

// ParseModel accepts a model number (1-10) or its short name. Short names
// win, so "2005" is the likelihood model and not model number 2005.
func ParseModel(s string) (Model, error) {
	for m, info := range modelInfo {
		if info.short == s {
			return m, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		m := Model(n)
		if _, ok := modelInfo[m]; ok {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownModel, s)
}

func (m Model) String() string {
	if info, ok := modelInfo[m]; ok {
		return info.short
	}
	return "unknown"
}

// Description explains the model formula
func (m Model) Description() string {
	return modelInfo[m].desc
}

// Input is everything a weight model may look at for one phrase
type Input struct {
	Count     int
	RealCount int
	// Freqs and Words hold the frequency and word flag of each member, in phrase order
	Freqs []int
	Words []bool
}

// Env carries corpus-level values shared by all phrases of a run
type Env struct {
	Tokens               int
	AverageTypeFrequency float64
	LogFac               *LogFactorial
}

// Weight computes the model's weight for one phrase
func (m Model) Weight(in Input, env Env) float64 {
	length := float64(len(in.Freqs))
	count := float64(in.Count)

	switch m {
	case Frequency:
		return count
	case Length:
		return length
	case FrequencyLength:
		return count * length
	case InverseWordFrequency:
		return count * sumInverse(in.Freqs)
	case FrequencyRatio:
		prod := 1.0
		for i, f := range in.Freqs {
			if in.Words != nil && in.Words[i] {
				prod *= env.AverageTypeFrequency / float64(f)
			}
		}
		return prod * count * length
	case Entropy:
		return count * sumEntropy(in.Freqs)
	case EntropyLogLength:
		return count * sumEntropy(in.Freqs) * math.Log(length)
	case CountReduced:
		return float64(in.RealCount) * sumInverse(in.Freqs)
	case Likelihood2005:
		return weight2005(in, env)
	case Likelihood2005b:
		return weight2005b(in, env)
	}
	return 0
}

func sumInverse(freqs []int) float64 {
	s := 0.0
	for _, f := range freqs {
		s += 1.0 / float64(f)
	}
	return s
}

func sumEntropy(freqs []int) float64 {
	s := 0.0
	for _, f := range freqs {
		p := 1.0 / float64(f)
		s -= p * math.Log(p)
	}
	return s
}

// weight2005 is the negative log probability that a phrase of l words with
// independent word probabilities f/n occurs exactly m times in n tokens:
//
//	log P = -log m! + sum_j log(n-jl+1) + m log p + (n-ml) log(1-p)
func weight2005(in Input, env Env) float64 {
	n := env.Tokens
	m := in.RealCount
	l := len(in.Freqs)
	if n <= 0 {
		return 0
	}

	sum := -env.LogFac.At(m)
	for j := 1; j <= m; j++ {
		if k := n - j*l + 1; k > 0 {
			sum += math.Log(float64(k))
		}
	}

	logFreqs := 0.0
	for _, f := range in.Freqs {
		logFreqs += math.Log(float64(f))
	}
	sum += float64(m) * (logFreqs - float64(l)*math.Log(float64(n)))

	prod := 1.0
	for _, f := range in.Freqs {
		prod *= float64(f) / float64(n)
	}
	if prod < 1 {
		sum += float64(n-m*l) * math.Log(1-prod)
	}
	return -sum
}

// weight2005b follows weight2005 but lowers each word's available frequency
// by one for every earlier occurrence, so a phrase cannot be more likely to
// occur than its rarest word. The per-word probability (f-j)/n is an integer
// quotient, as the model was originally published, so the (n-jl) log(1-p)
// term is zero for every word frequency below n.
func weight2005b(in Input, env Env) float64 {
	n := env.Tokens
	m := in.RealCount
	l := len(in.Freqs)
	if n <= 0 {
		return 0
	}

	sum := 0.0
	for j := 1; j <= m; j++ {
		if k := n - j*l + 1; k > 0 {
			sum += math.Log(float64(k))
		}
		prod := 1.0
		for _, f := range in.Freqs {
			if f > j-1 {
				sum += math.Log(float64(f - j + 1))
				if f > j {
					prod *= float64((f - j) / n)
				}
			}
		}
		if 1-prod > 0 {
			sum += float64(n-j*l) * math.Log(1-prod)
		}
	}
	sum -= float64(l*m) * math.Log(float64(n))
	sum -= env.LogFac.At(m)
	return -sum
}
