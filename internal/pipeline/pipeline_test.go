package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/repcheck/internal/cache"
	"github.com/ppiankov/repcheck/internal/corpus"
	"github.com/ppiankov/repcheck/internal/metrics"
	"github.com/ppiankov/repcheck/internal/model"
)

func writeFiles(t *testing.T, docs map[string]string) map[string]string {
	t.Helper()
	dir := t.TempDir()
	paths := make(map[string]string, len(docs))
	for name, text := range docs {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(text), 0644))
		paths[name] = p
	}
	return paths
}

func newTestPipeline(cfg *model.Config) *Pipeline {
	return New(cfg, cache.NewMemoryCache(0), metrics.New(), nil)
}

func TestAnalyze_VersionComparison(t *testing.T) {
	paths := writeFiles(t, map[string]string{
		"a.txt": "the cat sat . the cat sat .",
		"b.txt": "the cat sat .",
	})
	p := newTestPipeline(model.DefaultConfig())

	res, err := p.Analyze(context.Background(), []string{paths["a.txt"], paths["b.txt"]})
	require.NoError(t, err)
	rep := res.Report

	assert.Equal(t, TaskComparison, rep.Task)
	assert.Equal(t, ModeCross, rep.Settings.Mode)
	assert.NotEmpty(t, rep.RunID)

	require.Len(t, rep.Phrases, 1)
	assert.Equal(t, "the cat sat", rep.Phrases[0].Text)
	assert.Equal(t, []string{"the", "cat", "sat"}, rep.Phrases[0].Words)
	assert.Equal(t, 3, rep.Phrases[0].Count)
	assert.Equal(t, 3, rep.Phrases[0].RealCount)
	assert.Equal(t, 1, rep.Phrases[0].Rank)

	assert.Equal(t, 9, rep.Diagnostics.FiducialTextLength)
	assert.Equal(t, 3, rep.Diagnostics.ReducedTextLength)
	assert.Equal(t, 0, rep.Diagnostics.Unmatched)
	assert.InDelta(t, 3.0, rep.Repetitiveness, 1e-9)
	assert.Equal(t, 12, rep.Diagnostics.Tokens)
	assert.Equal(t, 3, rep.Diagnostics.SentenceSeparators)

	require.Len(t, rep.Files, 2)
	assert.Equal(t, 8, rep.Files[0].Tokens)
	assert.Equal(t, 2, rep.Files[0].SentenceSeparators)
	assert.InDelta(t, 1.0, rep.Files[0].Alikeness, 1e-9)
	assert.Equal(t, 4, rep.Files[1].Tokens)
}

func TestAnalyze_MarksMatchPhrases(t *testing.T) {
	paths := writeFiles(t, map[string]string{
		"a.txt": "the cat sat . the cat sat .",
		"b.txt": "the cat sat .",
	})
	p := newTestPipeline(model.DefaultConfig())
	res, err := p.Analyze(context.Background(), []string{paths["a.txt"], paths["b.txt"]})
	require.NoError(t, err)

	require.Len(t, res.Report.Marks, 2)
	assert.Equal(t, []model.MarkSpan{{Start: 0, End: 11}, {Start: 14, End: 25}}, res.Report.Marks[0].Spans)
	assert.Equal(t, []model.MarkSpan{{Start: 0, End: 11}}, res.Report.Marks[1].Spans)

	sources := make(map[string][]byte)
	for _, src := range res.Corpus.Sources {
		sources[src.Name] = src.Data
	}
	for _, fm := range res.Report.Marks {
		for _, s := range fm.Spans {
			assert.Equal(t, res.Report.Phrases[0].Text, string(sources[fm.File][s.Start:s.End]))
		}
	}
}

func TestAnalyze_SingleDocument(t *testing.T) {
	p := newTestPipeline(model.DefaultConfig())
	res, err := p.AnalyzeSources(context.Background(), []corpus.Source{
		{Name: "a", Data: []byte("the cat sat . the cat sat . a dog ran .")},
	})
	require.NoError(t, err)
	rep := res.Report

	assert.Equal(t, TaskRepetitiveness, rep.Task)
	assert.Equal(t, ModeSingle, rep.Settings.Mode)
	require.Len(t, rep.Phrases, 1)
	assert.Equal(t, 2, rep.Phrases[0].RealCount)
	// 6 covered tokens, 3 unmatched words
	assert.Equal(t, 3, rep.Diagnostics.Unmatched)
	assert.Equal(t, 9, rep.Diagnostics.FiducialTextLength)
	assert.Equal(t, 6, rep.Diagnostics.ReducedTextLength)
	assert.InDelta(t, 1.5, rep.Repetitiveness, 1e-9)
}

func TestAnalyze_EmptyCorpus(t *testing.T) {
	paths := writeFiles(t, map[string]string{"empty.txt": ""})
	p := newTestPipeline(model.DefaultConfig())

	res, err := p.Analyze(context.Background(), []string{paths["empty.txt"]})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Report.Repetitiveness, 1e-9)
	assert.Empty(t, res.Report.Phrases)
	assert.Empty(t, res.Report.Marks)
	assert.Equal(t, 0, res.Report.Diagnostics.Tokens)
	assert.False(t, res.Report.Diagnostics.Regression.Defined)
}

func TestAnalyze_Idempotent(t *testing.T) {
	sources := []corpus.Source{
		{Name: "a", Data: []byte("one two three . one two three . four five . four five six .")},
		{Name: "b", Data: []byte("one two three . four five six .")},
	}
	p := newTestPipeline(model.DefaultConfig())

	first, err := p.AnalyzeSources(context.Background(), sources)
	require.NoError(t, err)
	second, err := p.AnalyzeSources(context.Background(), sources)
	require.NoError(t, err)

	assert.Equal(t, first.Report.Phrases, second.Report.Phrases)
	assert.Equal(t, first.Report.Files, second.Report.Files)
	assert.Equal(t, first.Report.Marks, second.Report.Marks)
	assert.Equal(t, first.Report.Repetitiveness, second.Report.Repetitiveness)
	assert.NotEqual(t, first.Report.RunID, second.Report.RunID)
}

func TestAnalyze_Morphemes(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Analysis.Morphemes = true
	p := newTestPipeline(cfg)

	res, err := p.AnalyzeSources(context.Background(), []corpus.Source{{Name: "a", Data: []byte("cats cat")}})
	require.NoError(t, err)

	require.Len(t, res.Report.Files, 1)
	assert.Equal(t, corpus.MorphemeName, res.Report.Files[0].Name)
	assert.True(t, res.Report.Settings.Morphemes)
	require.NotEmpty(t, res.Report.Phrases)
	assert.Equal(t, "^cat", res.Report.Phrases[0].Text)
}

func TestAnalyze_InvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*model.Config)
	}{
		{"unknown model", func(c *model.Config) { c.Analysis.Model = "nope" }},
		{"no passes", func(c *model.Config) { c.Analysis.Passes = 0 }},
		{"unknown mode", func(c *model.Config) { c.Analysis.Mode = "crosss" }},
		{"fuzziness", func(c *model.Config) { c.Analysis.Fuzziness = 101 }},
		{"max below min", func(c *model.Config) { c.Analysis.MinLength, c.Analysis.MaxLength = 3, 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultConfig()
			tt.apply(cfg)
			p := newTestPipeline(cfg)

			res, err := p.AnalyzeSources(context.Background(), []corpus.Source{{Name: "a", Data: []byte("a b c d . a b c . b c d .")}})
			assert.ErrorIs(t, err, model.ErrInvalidConfig)
			assert.Nil(t, res)
		})
	}
}

func TestAnalyze_OverlapsCountedOnce(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Analysis.Mode = ModeSingle
	p := newTestPipeline(cfg)

	res, err := p.AnalyzeSources(context.Background(), []corpus.Source{{Name: "a", Data: []byte("a b c d . a b c . b c d .")}})
	require.NoError(t, err)
	rep := res.Report

	// every non-separator token is either covered once or unmatched
	assert.Equal(t, rep.Diagnostics.Tokens-rep.Diagnostics.SentenceSeparators, rep.Diagnostics.FiducialTextLength)
	// "a b c" and "b c d" share "b c" in the first sentence, so only one survives
	require.Len(t, rep.Phrases, 1)
	assert.Contains(t, []string{"a b c", "b c d"}, rep.Phrases[0].Text)
	assert.Equal(t, 2, rep.Phrases[0].RealCount)
}

func TestAnalyze_PassesReweighByRealCount(t *testing.T) {
	// "x x" matches four times but only two matches fit without overlap
	const text = "x x x . x x x . y z . y z . y . y . z . z ."
	run := func(passes int) *model.Report {
		cfg := model.DefaultConfig()
		cfg.Analysis.Model = "FL/wfP"
		cfg.Analysis.MaxLength = 2
		cfg.Analysis.Passes = passes
		p := newTestPipeline(cfg)
		res, err := p.AnalyzeSources(context.Background(), []corpus.Source{{Name: "a", Data: []byte(text)}})
		require.NoError(t, err)
		require.Len(t, res.Report.Phrases, 2)
		return res.Report
	}

	one := run(1)
	assert.Equal(t, "x x", one.Phrases[0].Text)
	assert.Equal(t, 4, one.Phrases[0].Count)
	assert.InDelta(t, 4.0/3, one.Phrases[0].Weight, 1e-9)
	assert.Equal(t, 2, one.Phrases[0].RealCount)

	two := run(2)
	assert.Equal(t, "y z", two.Phrases[0].Text)
	assert.InDelta(t, 1.0, two.Phrases[0].Weight, 1e-9)
	assert.Equal(t, "x x", two.Phrases[1].Text)
	assert.InDelta(t, 2.0/3, two.Phrases[1].Weight, 1e-9)
	assert.Equal(t, 2, two.Phrases[1].RealCount)
}

func TestAnalyze_MissingFile(t *testing.T) {
	p := newTestPipeline(model.DefaultConfig())
	_, err := p.Analyze(context.Background(), []string{filepath.Join(t.TempDir(), "missing.txt")})
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestAnalyze_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTestPipeline(model.DefaultConfig())

	_, err := p.AnalyzeSources(ctx, []corpus.Source{{Name: "a", Data: []byte("a b . a b .")}})
	assert.ErrorIs(t, err, context.Canceled)
}
