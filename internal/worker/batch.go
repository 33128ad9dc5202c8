package worker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/repcheck/internal/pipeline"
)

// Analyzer runs one analysis over a set of inputs
type Analyzer interface {
	Analyze(ctx context.Context, refs []string) (*pipeline.Result, error)
}

// Corpus names a group of inputs analysed together
type Corpus struct {
	Name string
	Refs []string
}

// CorpusJob analyses one corpus
type CorpusJob struct {
	Corpus   Corpus
	Analyzer Analyzer
}

// Execute executes the analysis
func (j *CorpusJob) Execute(ctx context.Context) Result {
	res, err := j.Analyzer.Analyze(ctx, j.Corpus.Refs)
	return &CorpusResult{Corpus: j.Corpus, Result: res, Error: err}
}

// CorpusResult is the outcome of one corpus analysis
type CorpusResult struct {
	Corpus Corpus
	Result *pipeline.Result
	Error  error
}

// GetError returns the analysis error
func (r *CorpusResult) GetError() error {
	return r.Error
}

// BatchProcessor analyses independent corpora concurrently. Every analysis
// builds its own corpus; nothing is shared between jobs except the analyzer.
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	logger      *slog.Logger
	progress    *rate.Sometimes
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		logger:      logger,
		progress:    &rate.Sometimes{First: 1, Interval: 2 * time.Second},
	}
}

// ProcessCorpora analyses every corpus and returns results in input order
func (b *BatchProcessor) ProcessCorpora(ctx context.Context, corpora []Corpus) []*CorpusResult {
	if len(corpora) == 0 {
		return []*CorpusResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	total := len(corpora)
	pool.OnDone(func(done int) {
		b.progress.Do(func() {
			b.logger.Info("batch progress", slog.Int("done", done), slog.Int("total", total))
		})
	})
	pool.Start()

	for _, c := range corpora {
		pool.Submit(&CorpusJob{Corpus: c, Analyzer: b.analyzer})
	}

	results := pool.Wait()

	out := make([]*CorpusResult, len(corpora))
	for i := range out {
		if i < len(results) {
			if r, ok := results[i].(*CorpusResult); ok {
				out[i] = r
				continue
			}
		}
		out[i] = &CorpusResult{Corpus: corpora[i], Error: ctx.Err()}
	}
	return out
}

// ProcessFile reads a manifest and analyses every corpus it lists
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*CorpusResult, error) {
	corpora, err := ReadManifest(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return b.ProcessCorpora(ctx, corpora), nil
}

// ReadManifest reads one corpus per line. A line holds whitespace-separated
// paths or URLs, optionally preceded by "name:" to label the corpus. Blank
// lines and lines starting with # are skipped; repeated lines count once.
func ReadManifest(path string) ([]Corpus, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var corpora []Corpus
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true

		var name string
		fields := strings.Fields(line)
		if head := fields[0]; strings.HasSuffix(head, ":") && !strings.Contains(head, "/") {
			name = strings.TrimSuffix(head, ":")
			fields = fields[1:]
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("corpus %q lists no inputs", name)
		}
		if name == "" {
			name = pipeline.SanitizeFilename(fields[0])
		}
		corpora = append(corpora, Corpus{Name: name, Refs: fields})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return corpora, nil
}
