package score

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/ppiankov/repcheck/internal/corpus"
	"github.com/ppiankov/repcheck/internal/model"
	"github.com/ppiankov/repcheck/internal/repeats"
)

// Engine weights and ranks phrases and derives the report statistics
type Engine struct {
	model  Model
	logFac *LogFactorial
	logger *slog.Logger
}

// NewEngine creates an engine for one analysis
func NewEngine(m Model, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{model: m, logFac: NewLogFactorial(), logger: logger}
}

// Model returns the weight model in use
func (e *Engine) Model() Model { return e.model }

// Weigh stores the model weight in every phrase
func (e *Engine) Weigh(c *corpus.Corpus, phrases []repeats.Phrase) {
	env := Env{
		Tokens:               len(c.Tokens),
		AverageTypeFrequency: c.AverageFrequency,
		LogFac:               e.logFac,
	}
	var freqs []int
	var words []bool
	for i := range phrases {
		p := &phrases[i]
		freqs, words = freqs[:0], words[:0]
		for k := 0; k < p.Length; k++ {
			t := &c.Types[c.Tokens[p.Start+k].Type]
			freqs = append(freqs, t.Frequency())
			words = append(words, t.IsWord)
		}
		p.Weight = e.model.Weight(Input{
			Count:     p.Count,
			RealCount: p.RealCount,
			Freqs:     freqs,
			Words:     words,
		}, env)
	}
}

// Rank reorders order by descending weight. Equal weights keep their
// previous relative order.
func (e *Engine) Rank(phrases []repeats.Phrase, order []int) []int {
	slices.SortStableFunc(order, func(a, b int) int {
		wa, wb := phrases[a].Weight, phrases[b].Weight
		switch {
		case wa > wb:
			return -1
		case wa < wb:
			return 1
		default:
			return 0
		}
	})
	return order
}

// Signals derives diagnostic signals from a finished report
func (e *Engine) Signals(rep *model.Report) []model.Signal {
	signals := []model.Signal{e.repetitivenessSignal(rep)}

	if s, ok := e.dominantPhraseSignal(rep); ok {
		signals = append(signals, s)
	}
	if len(rep.Files) > 1 {
		signals = append(signals, e.alikenessSignals(rep)...)
	}
	if rep.Diagnostics.Regression.Defined {
		signals = append(signals, e.rankLengthSignal(rep))
	}
	return signals
}

func (e *Engine) repetitivenessSignal(rep *model.Report) model.Signal {
	r := rep.Repetitiveness
	severity := model.SeverityInfo
	if r >= 2.0 {
		severity = model.SeverityCritical
	} else if r >= 1.3 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalRepetitiveness,
		Severity:    severity,
		Description: fmt.Sprintf("Repetitiveness %.4f", r),
		Data: map[string]interface{}{
			"fiducial_text_length": rep.Diagnostics.FiducialTextLength,
			"reduced_text_length":  rep.Diagnostics.ReducedTextLength,
			"unmatched":            rep.Diagnostics.Unmatched,
			"repetitiveness":       r,
			"formula":              "(sum(length * real_count) + unmatched) / (sum(length) + unmatched)",
		},
	}
}

// dominantPhraseSignal fires when the top counted phrase alone covers at
// least a tenth of the non-separator tokens
func (e *Engine) dominantPhraseSignal(rep *model.Report) (model.Signal, bool) {
	total := rep.Diagnostics.Tokens - rep.Diagnostics.SentenceSeparators
	if total <= 0 {
		return model.Signal{}, false
	}
	for _, row := range rep.Phrases {
		if row.RealCount < 2 {
			continue
		}
		covered := row.Length * row.RealCount
		share := float64(covered) / float64(total)
		if share < 0.1 {
			return model.Signal{}, false
		}
		severity := model.SeverityWarning
		if share >= 0.25 {
			severity = model.SeverityCritical
		}
		return model.Signal{
			Type:        model.SignalDominantPhrase,
			Severity:    severity,
			Description: fmt.Sprintf("%q covers %.1f%% of the text", row.Text, share*100),
			Data: map[string]interface{}{
				"phrase":     row.Text,
				"length":     row.Length,
				"real_count": row.RealCount,
				"share":      share,
				"formula":    "length * real_count / (tokens - sentence_separators)",
			},
		}, true
	}
	return model.Signal{}, false
}

func (e *Engine) alikenessSignals(rep *model.Report) []model.Signal {
	var signals []model.Signal
	for _, f := range rep.Files {
		if f.Alikeness >= 0.5 {
			continue
		}
		signals = append(signals, model.Signal{
			Type:        model.SignalLowAlikeness,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%s shares %.1f%% of its tokens with the other versions", f.Name, f.Alikeness*100),
			Data: map[string]interface{}{
				"file":      f.Name,
				"tokens":    f.Tokens,
				"unmatched": f.Unmatched,
				"alikeness": f.Alikeness,
				"formula":   "1 - unmatched / tokens",
			},
		})
	}
	return signals
}

func (e *Engine) rankLengthSignal(rep *model.Report) model.Signal {
	reg := rep.Diagnostics.Regression
	return model.Signal{
		Type:        model.SignalRankLength,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("phrase length = %.4f + %.4f * log(phrase #)", reg.Intercept, reg.Slope),
		Data: map[string]interface{}{
			"slope":     reg.Slope,
			"intercept": reg.Intercept,
			"points":    reg.Points,
			"formula":   reg.Formula,
		},
	}
}
