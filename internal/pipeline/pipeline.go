package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/repcheck/internal/cache"
	"github.com/ppiankov/repcheck/internal/charclass"
	"github.com/ppiankov/repcheck/internal/corpus"
	"github.com/ppiankov/repcheck/internal/metrics"
	"github.com/ppiankov/repcheck/internal/model"
	"github.com/ppiankov/repcheck/internal/repeats"
	"github.com/ppiankov/repcheck/internal/score"
)

const (
	TaskRepetitiveness = "repetitiveness checking"
	TaskComparison     = "version comparison"

	ModeSingle = "single"
	ModeCross  = "cross"
)

// Pipeline runs complete analyses with one configuration
type Pipeline struct {
	config  *model.Config
	loader  *Loader
	table   *charclass.Table
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// New creates a pipeline. c and rec may be nil.
func New(cfg *model.Config, c cache.Cache, rec *metrics.Recorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := NewFetcher(cfg.Input.Timeout, cfg.Input.UserAgent, cfg.Input.MaxBytes, cfg.Input.Retries)
	if cfg.Input.RequestsPerSecond > 0 {
		fetcher.SetLimiter(NewHostLimiter(cfg.Input.RequestsPerSecond, cfg.Input.Burst))
	}
	return &Pipeline{
		config:  cfg,
		loader:  NewLoader(c, fetcher, cfg.Input.MaxBytes, logger),
		table:   charclass.Default(),
		metrics: rec,
		logger:  logger,
	}
}

// Result is a finished analysis. Corpus is the corpus the marks refer to.
type Result struct {
	Report *model.Report
	Corpus *corpus.Corpus
}

// Analyze loads every input in order and analyses them as one corpus
func (p *Pipeline) Analyze(ctx context.Context, refs []string) (*Result, error) {
	start := time.Now()
	sources := make([]corpus.Source, 0, len(refs))
	for _, ref := range refs {
		src, err := p.loader.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		sources = append(sources, src)
	}
	p.metrics.ObserveStage("load", time.Since(start))
	return p.AnalyzeSources(ctx, sources)
}

// AnalyzeSources analyses already loaded sources
func (p *Pipeline) AnalyzeSources(ctx context.Context, sources []corpus.Source) (*Result, error) {
	if err := p.config.Validate(); err != nil {
		return nil, err
	}
	cfg := p.config.Analysis

	weightModel, err := score.ParseModel(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("weight model: %w", err)
	}
	policy, err := repeats.NewPolicy(cfg.Fuzziness)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	var c *corpus.Corpus
	err = p.timed("tokenize", func() error {
		var err error
		c, err = p.index(sources)
		if err != nil {
			return err
		}
		if cfg.Morphemes {
			c, err = p.index([]corpus.Source{corpus.MorphemeSource(c)})
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var mode string
	switch cfg.Mode {
	case "auto":
		mode = ModeSingle
		if c.NumFiles() > 1 {
			mode = ModeCross
		}
	case ModeSingle, ModeCross:
		mode = cfg.Mode
	default:
		return nil, fmt.Errorf("%w: unknown counting mode %q", model.ErrInvalidConfig, cfg.Mode)
	}

	var phrases []repeats.Phrase
	_ = p.timed("find", func() error {
		phrases = repeats.NewFinder(c, repeats.Options{
			MinLength:     cfg.MinLength,
			MaxLength:     cfg.MaxLength,
			OverlapSearch: cfg.OverlapSearch,
			Policy:        policy,
		}, p.logger).Find()
		return nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engine := score.NewEngine(weightModel, p.logger)
	counter := repeats.NewCounter(c, policy, phrases, p.logger)
	order := make([]int, len(phrases))
	for i := range order {
		order[i] = i
	}

	err = p.timed("count", func() error {
		raw := counter.CountRaw()
		p.logger.Debug("raw count", slog.Int("phrases", len(phrases)), slog.Int("occurrences", raw))

		for pass := 1; pass <= cfg.Passes; pass++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			engine.Weigh(c, phrases)
			order = engine.Rank(phrases, order)

			var total int
			if mode == ModeCross {
				var err error
				if total, err = counter.CountCrossDocument(order); err != nil {
					return err
				}
			} else {
				total = counter.CountSingle(order)
			}
			p.logger.Debug("counting pass complete",
				slog.Int("pass", pass),
				slog.String("mode", mode),
				slog.Int("real_count", total),
				slog.Int("unmatched", counter.Unmatched()))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	var rep *model.Report
	_ = p.timed("report", func() error {
		unmatched := counter.Unmatched()
		agg := score.Aggregate(phrases, unmatched)
		counter.Remark(order)
		score.Accumulate(c, phrases, order, unmatched)
		reg := score.Fit(phrases, order)

		rep = p.buildReport(c, phrases, order, mode, policy, weightModel, agg, reg)
		rep.Signals = engine.Signals(rep)
		return nil
	})
	p.metrics.ObserveReport(rep)

	p.logger.Info("analysis complete",
		slog.String("run_id", rep.RunID),
		slog.Int("files", c.NumFiles()),
		slog.Int("tokens", len(c.Tokens)),
		slog.Int("phrases", len(rep.Phrases)),
		slog.Float64("repetitiveness", rep.Repetitiveness))

	return &Result{Report: rep, Corpus: c}, nil
}

// index tokenizes sources and builds the type table
func (p *Pipeline) index(sources []corpus.Source) (*corpus.Corpus, error) {
	c, err := corpus.Tokenize(sources, p.table)
	if err != nil {
		return nil, err
	}
	corpus.BuildTypes(c, p.table, p.config.Analysis.CaseSensitive)
	return c, nil
}

func (p *Pipeline) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.ObserveStage(stage, time.Since(start))
	return err
}

func (p *Pipeline) buildReport(
	c *corpus.Corpus,
	phrases []repeats.Phrase,
	order []int,
	mode string,
	policy repeats.Policy,
	weightModel score.Model,
	agg score.Aggregates,
	reg model.Regression,
) *model.Report {
	cfg := p.config.Analysis
	task := TaskRepetitiveness
	if mode == ModeCross {
		task = TaskComparison
	}
	sep := " "
	if cfg.Morphemes {
		sep = ""
	}

	rep := &model.Report{
		RunID:       uuid.NewString(),
		Task:        task,
		GeneratedAt: time.Now().UTC(),
		Settings: model.Settings{
			Model:            weightModel.String(),
			ModelDescription: weightModel.Description(),
			Fuzziness:        policy.Fuzziness,
			FuzzyLabel:       policy.Label(),
			MinLength:        cfg.MinLength,
			MaxLength:        cfg.MaxLength,
			Passes:           cfg.Passes,
			CaseSensitive:    cfg.CaseSensitive,
			OverlapSearch:    cfg.OverlapSearch,
			Morphemes:        cfg.Morphemes,
			Mode:             mode,
		},
		Repetitiveness: agg.Repetitiveness,
		Diagnostics: model.Diagnostics{
			Tokens:               len(c.Tokens),
			Types:                len(c.Types),
			SentenceSeparators:   c.Separators,
			LowestFrequency:      c.LowestFrequency,
			HighestFrequency:     c.HighestFrequency,
			AverageTypeFrequency: c.AverageFrequency,
			Phrases:              len(phrases),
			FiducialTextLength:   agg.Fiducial,
			ReducedTextLength:    agg.Reduced,
			Unmatched:            agg.Unmatched,
			Regression:           reg,
		},
	}
	if len(c.Types) > 0 {
		rep.Diagnostics.LowestFrequencyType = c.Types[c.LowestType].Text
		rep.Diagnostics.HighestFrequencyType = c.Types[c.HighestType].Text
	}

	for f := 0; f < c.NumFiles(); f++ {
		first, end := c.FileRange(f)
		fd := c.Files[f]
		rep.Files = append(rep.Files, model.FileStats{
			Name:               fd.Name,
			Tokens:             end - first,
			SentenceSeparators: fd.SentenceSeparators,
			Unmatched:          fd.Unmatched,
			Alikeness:          score.Alikeness(fd, end-first),
		})
	}

	for _, idx := range order {
		ph := &phrases[idx]
		if ph.RealCount <= 1 {
			continue
		}
		words := make([]string, ph.Length)
		for k := range words {
			words[k] = c.Types[c.Tokens[ph.Start+k].Type].Text
		}
		rep.Phrases = append(rep.Phrases, model.PhraseRow{
			Rank:                      len(rep.Phrases) + 1,
			Text:                      ph.Text(c, sep),
			Words:                     words,
			Length:                    ph.Length,
			Count:                     ph.Count,
			RealCount:                 ph.RealCount,
			Weight:                    ph.Weight,
			AccumulatedRepetitiveness: ph.AccumulatedRepetitiveness,
		})
	}

	rep.Marks = collectMarks(c)
	return rep
}

// collectMarks converts the claimed token runs of every file into byte spans
func collectMarks(c *corpus.Corpus) []model.FileMarks {
	var out []model.FileMarks
	for f := 0; f < c.NumFiles(); f++ {
		first, end := c.FileRange(f)
		fm := model.FileMarks{File: c.Files[f].Name}
		for i := first; i < end; i++ {
			if c.Tokens[i].Mark&corpus.MarkBegin == 0 {
				continue
			}
			j := i
			for j < end-1 && c.Tokens[j].Mark&corpus.MarkEnd == 0 {
				j++
			}
			fm.Spans = append(fm.Spans, model.MarkSpan{Start: c.Tokens[i].Start, End: c.Tokens[j].End})
			i = j
		}
		if len(fm.Spans) > 0 {
			out = append(out, fm)
		}
	}
	return out
}
