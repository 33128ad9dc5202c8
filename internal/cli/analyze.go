package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/repcheck/internal/cache"
	"github.com/ppiankov/repcheck/internal/diag"
	"github.com/ppiankov/repcheck/internal/metrics"
	"github.com/ppiankov/repcheck/internal/model"
	"github.com/ppiankov/repcheck/internal/pipeline"
	"github.com/ppiankov/repcheck/internal/store"
)

// analysisFlagKeys maps analysis flags to config keys
var analysisFlagKeys = map[string]string{
	"model":          "analysis.model",
	"fuzzy":          "analysis.fuzziness",
	"passes":         "analysis.passes",
	"min":            "analysis.min_length",
	"max":            "analysis.max_length",
	"case-sensitive": "analysis.case_sensitive",
	"overlap":        "analysis.overlap_search",
	"mode":           "analysis.mode",
	"letters":        "analysis.morphemes",
	"timeout":        "input.timeout",
	"ua":             "input.user_agent",
	"max-bytes":      "input.max_bytes",
	"no-cache":       "", // inverted, handled after loading
	"top":            "output.top",
	"color":          "output.color",
	"sqlite":         "store.sqlite",
	"metrics-file":   "metrics.textfile",
}

// addAnalysisFlags registers the flags shared by analyze, batch and watch
func addAnalysisFlags(cmd *cobra.Command) {
	d := model.DefaultConfig()
	f := cmd.Flags()
	f.StringP("model", "m", d.Analysis.Model, "weight model: 1-10 or F, L, FL, FL/wf, FLR, FLE, FLElogL, FL/wfP, 2005, 2005b")
	f.IntP("fuzzy", "f", d.Analysis.Fuzziness, "sentence fuzziness: 0 no limit, 100 whole sentences only")
	f.Int("passes", d.Analysis.Passes, "weigh-and-count passes")
	f.Int("min", d.Analysis.MinLength, "minimum words per phrase")
	f.Int("max", d.Analysis.MaxLength, "maximum words per phrase (0 = unlimited)")
	f.Bool("case-sensitive", d.Analysis.CaseSensitive, "distinguish upper and lower case")
	f.Bool("overlap", d.Analysis.OverlapSearch, "keep searching inside already matched spans")
	f.String("mode", d.Analysis.Mode, "counting mode: auto, single or cross")
	f.Bool("letters", d.Analysis.Morphemes, "analyse repeated letter sequences within words")
	f.Duration("timeout", d.Input.Timeout, "timeout per fetched URL")
	f.String("ua", d.Input.UserAgent, "HTTP User-Agent")
	f.Int64("max-bytes", d.Input.MaxBytes, "max bytes per input")
	f.Bool("no-cache", false, "disable the in-memory source cache")
	f.Int("top", d.Output.Top, "phrases shown in summaries and Markdown (0 = all)")
	f.String("color", d.Output.Color, "terminal colour: auto, always or never")
	f.String("sqlite", "", "export reports to this SQLite database")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile")
}

func loadAnalysisConfig(cmd *cobra.Command, extra map[string]string) (*model.Config, error) {
	keys := make(map[string]string, len(analysisFlagKeys)+len(extra))
	for k, v := range analysisFlagKeys {
		if v != "" {
			keys[k] = v
		}
	}
	for k, v := range extra {
		keys[k] = v
	}
	if err := bindFlags(cmd, keys); err != nil {
		return nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	return cfg, nil
}

// newPipeline wires the cache and metrics the configuration asks for
func newPipeline(cfg *model.Config, rec *metrics.Recorder, logger *slog.Logger) *pipeline.Pipeline {
	var c cache.Cache
	if cfg.Cache.Enabled {
		c = cache.NewMemoryCache(cfg.Cache.TTL)
	}
	return pipeline.New(cfg, c, rec, logger)
}

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:     "analyze <file|url>...",
	Aliases: []string{"check"},
	Short:   "Analyse one document, or compare several versions of it",
	Long: `Analyze finds repeated phrases and reports the repetitiveness of the
input. With one input every repeat inside it counts; with several inputs
(versions of one text) only phrases present in every version count.

Inputs may be plain text, HTML, PDF or DOCX files, or http(s) URLs.

Example:
  repcheck analyze draft.txt
  repcheck analyze v1.txt v2.txt --model FL/wf --fuzzy 50
  repcheck analyze report.pdf --json report.json --md report.md --html-dir marked/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addAnalysisFlags(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().String("json", "", "output JSON path")
	analyzeCmd.Flags().String("md", "", "output Markdown path")
	analyzeCmd.Flags().String("html-dir", "", "write marked-up HTML per input into this directory")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadAnalysisConfig(cmd, map[string]string{
		"json":     "output.json",
		"md":       "output.markdown",
		"html-dir": "output.html_dir",
	})
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)
	rec := metrics.New()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p := newPipeline(cfg, rec, logger)
	res, err := p.Analyze(ctx, args)
	rec.ObserveOutcome(string(diag.Classify(err)))
	if err != nil {
		logger.Error("analysis failed", slog.String("code", string(diag.Classify(err))), slog.Any("error", err))
		_ = rec.WriteTextfile(cfg.Metrics.Textfile)
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := writeOutputs(ctx, cfg, res, cfg.Output.JSON, cfg.Output.Markdown, cfg.Output.HTMLDir); err != nil {
		return err
	}
	if cfg.Store.SQLite != "" {
		if err := exportReports(ctx, cfg.Store.SQLite, res.Report); err != nil {
			return err
		}
	}

	r := pipeline.NewRenderer(cfg.Output.Top, pipeline.ColorEnabled(cfg.Output.Color, os.Stdout))
	r.WriteSummary(cmd.OutOrStdout(), res.Report)

	return rec.WriteTextfile(cfg.Metrics.Textfile)
}

// writeOutputs renders the file outputs of one result; empty paths are skipped
func writeOutputs(ctx context.Context, cfg *model.Config, res *pipeline.Result, jsonPath, mdPath, htmlDir string) error {
	r := pipeline.NewRenderer(cfg.Output.Top, false)
	if jsonPath != "" {
		if err := r.RenderJSON(res.Report, jsonPath); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}
	if mdPath != "" {
		if err := r.RenderMarkdown(res.Report, mdPath); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}
	if htmlDir != "" {
		paths, err := r.RenderHTML(res, htmlDir)
		if err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		if verbose {
			for _, p := range paths {
				fmt.Fprintf(os.Stderr, "✓ Wrote HTML: %s\n", p)
			}
		}
	}
	return ctx.Err()
}

func exportReports(ctx context.Context, path string, reports ...*model.Report) error {
	s, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	defer func() { _ = s.Close() }()

	for _, rep := range reports {
		if err := s.Export(ctx, rep); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Exported %d report(s) to %s\n", len(reports), path)
	}
	return nil
}
