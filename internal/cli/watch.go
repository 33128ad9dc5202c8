package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/repcheck/internal/diag"
	"github.com/ppiankov/repcheck/internal/metrics"
	"github.com/ppiankov/repcheck/internal/pipeline"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <file>...",
	Short: "Re-analyse local files whenever they change",
	Long: `Watch runs an analysis, prints the summary and runs it again every
time one of the files is saved. Unchanged files are served from the
source cache. Stop with Ctrl-C.

Example:
  repcheck watch draft.txt
  repcheck watch v1.txt v2.txt --top 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addAnalysisFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", 300*time.Millisecond, "wait this long after a change before re-analysing")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadAnalysisConfig(cmd, nil)
	if err != nil {
		return err
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")
	logger := newLogger(cfg.Log)
	rec := metrics.New()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p := newPipeline(cfg, rec, logger)
	r := pipeline.NewRenderer(cfg.Output.Top, pipeline.ColorEnabled(cfg.Output.Color, os.Stdout))
	out := cmd.OutOrStdout()

	run := func(ctx context.Context) {
		res, err := p.Analyze(ctx, args)
		rec.ObserveOutcome(string(diag.Classify(err)))
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("analysis failed", slog.String("code", string(diag.Classify(err))), slog.Any("error", err))
			}
			return
		}
		fmt.Fprintf(out, "\n── %s ──\n", time.Now().Format("15:04:05"))
		r.WriteSummary(out, res.Report)
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("write metrics", slog.Any("error", err))
		}
	}

	err = pipeline.Watch(ctx, args, debounce, logger, run)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
