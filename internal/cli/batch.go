package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/repcheck/internal/diag"
	"github.com/ppiankov/repcheck/internal/metrics"
	"github.com/ppiankov/repcheck/internal/model"
	"github.com/ppiankov/repcheck/internal/worker"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Analyse many independent corpora from a manifest in parallel",
	Long: `Batch runs one analysis per manifest line:
- Each line lists the inputs of one corpus, separated by whitespace
- A leading "name:" labels the corpus and its report files
- Lines starting with # are comments
- Corpora are analysed in parallel; each gets its own JSON and Markdown report

Example manifest:
  handbook: handbook-2023.txt handbook-2024.txt
  https://example.com/terms.html

Example:
  repcheck batch corpora.txt
  repcheck batch corpora.txt --workers 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addAnalysisFlags(batchCmd)

	d := model.DefaultConfig()
	batchCmd.Flags().Int("workers", d.Concurrency.Workers, "number of concurrent analyses")
	batchCmd.Flags().String("output-dir", "./repcheck-reports", "output directory for reports")
	batchCmd.Flags().Duration("batch-timeout", 30*time.Minute, "total timeout for the batch")
	batchCmd.Flags().Bool("html", false, "also write marked-up HTML per corpus")
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]
	cfg, err := loadAnalysisConfig(cmd, map[string]string{"workers": "concurrency.workers"})
	if err != nil {
		return err
	}
	outputDir, _ := cmd.Flags().GetString("output-dir")
	batchTimeout, _ := cmd.Flags().GetDuration("batch-timeout")
	withHTML, _ := cmd.Flags().GetBool("html")

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  repcheck Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Manifest:     %s\n", manifest)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Model:        %s\n", cfg.Analysis.Model)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	logger := newLogger(cfg.Log)
	rec := metrics.New()
	p := newPipeline(cfg, rec, logger)
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, logger)

	fmt.Fprintf(os.Stderr, "⚙️  Analysing corpora with %d workers...\n\n", cfg.Concurrency.Workers)
	results, err := processor.ProcessFile(ctx, manifest)
	if err != nil {
		return fmt.Errorf("process manifest: %w", err)
	}

	successCount := 0
	failureCount := 0
	var exported []*model.Report
	used := make(map[string]int)

	for _, result := range results {
		rec.ObserveOutcome(string(diag.Classify(result.Error)))
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Corpus.Name, result.Error)
			continue
		}

		slug := result.Corpus.Name
		if n := used[slug]; n > 0 {
			slug = fmt.Sprintf("%s-%d", slug, n+1)
		}
		used[result.Corpus.Name]++

		htmlDir := ""
		if withHTML {
			htmlDir = filepath.Join(outputDir, slug+"-html")
		}
		err := writeOutputs(ctx, cfg, result.Result,
			filepath.Join(outputDir, slug+".json"),
			filepath.Join(outputDir, slug+".md"),
			htmlDir)
		if err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Corpus.Name, err)
			continue
		}

		successCount++
		exported = append(exported, result.Result.Report)
		rep := result.Result.Report
		fmt.Fprintf(os.Stderr, "✓ %s (repetitiveness: %.4f, %d phrases)\n", result.Corpus.Name, rep.Repetitiveness, len(rep.Phrases))
	}

	if cfg.Store.SQLite != "" && len(exported) > 0 {
		if err := exportReports(ctx, cfg.Store.SQLite, exported...); err != nil {
			return err
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d corpora\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return rec.WriteTextfile(cfg.Metrics.Textfile)
}
