package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/repcheck/internal/corpus"
	"github.com/ppiankov/repcheck/internal/model"
	"github.com/ppiankov/repcheck/internal/pipeline"
)

// mockAnalyzer implements Analyzer
type mockAnalyzer struct {
	shouldError bool
}

func (m *mockAnalyzer) Analyze(ctx context.Context, refs []string) (*pipeline.Result, error) {
	time.Sleep(5 * time.Millisecond) // Simulate work
	if m.shouldError {
		return nil, errors.New("analysis error")
	}
	files := make([]model.FileStats, len(refs))
	for i, r := range refs {
		files[i] = model.FileStats{Name: r}
	}
	return &pipeline.Result{Report: &model.Report{Files: files}, Corpus: &corpus.Corpus{}}, nil
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBatchProcessor_ProcessCorpora(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2, nil)
	corpora := []Corpus{
		{Name: "one", Refs: []string{"a.txt"}},
		{Name: "two", Refs: []string{"b.txt", "c.txt"}},
		{Name: "three", Refs: []string{"d.txt"}},
	}

	results := processor.ProcessCorpora(context.Background(), corpora)
	require.Len(t, results, 3)
	for i, res := range results {
		require.NoError(t, res.Error)
		assert.Equal(t, corpora[i].Name, res.Corpus.Name)
		require.NotNil(t, res.Result)
		assert.Len(t, res.Result.Report.Files, len(corpora[i].Refs))
	}
}

func TestBatchProcessor_ProcessCorpora_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{shouldError: true}, 2, nil)

	results := processor.ProcessCorpora(context.Background(), []Corpus{{Name: "x", Refs: []string{"a"}}})
	require.Len(t, results, 1)
	assert.Error(t, results[0].Error)
	assert.Nil(t, results[0].Result)
	assert.Equal(t, results[0].Error, results[0].GetError())
}

func TestBatchProcessor_ProcessCorpora_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2, nil)
	assert.Empty(t, processor.ProcessCorpora(context.Background(), nil))
}

func TestReadManifest(t *testing.T) {
	path := writeManifest(t, `a.txt b.txt
# comment

draft: v1.txt v2.txt   
https://example.com/page.html
a.txt b.txt
`)

	corpora, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []Corpus{
		{Name: "a.txt", Refs: []string{"a.txt", "b.txt"}},
		{Name: "draft", Refs: []string{"v1.txt", "v2.txt"}},
		{Name: "page.html", Refs: []string{"https://example.com/page.html"}},
	}, corpora)
}

func TestReadManifest_Errors(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = ReadManifest(writeManifest(t, "empty:\n"))
	assert.Error(t, err)
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeManifest(t, "a.txt\nb.txt c.txt\n# comment\n\nd.txt\n")
	processor := NewBatchProcessor(&mockAnalyzer{}, 2, nil)

	results, err := processor.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	_, err = processor.ProcessFile(context.Background(), "no_such_file.txt")
	assert.Error(t, err)
}

func TestBatchProcessor_RealPipeline(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("the cat sat . the cat sat ."), 0644))
	require.NoError(t, os.WriteFile(b, []byte("a dog ran ."), 0644))

	p := pipeline.New(model.DefaultConfig(), nil, nil, nil)
	results := NewBatchProcessor(p, 2, nil).ProcessCorpora(context.Background(), []Corpus{
		{Name: "a", Refs: []string{a}},
		{Name: "b", Refs: []string{b}},
	})

	require.Len(t, results, 2)
	require.NoError(t, results[0].Error)
	require.NoError(t, results[1].Error)
	assert.InDelta(t, 2.0, results[0].Result.Report.Repetitiveness, 1e-9)
	assert.InDelta(t, 1.0, results[1].Result.Report.Repetitiveness, 1e-9)
}
