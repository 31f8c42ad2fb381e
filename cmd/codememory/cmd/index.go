package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kapillamba4/codememory/internal/dispatch"
	"github.com/kapillamba4/codememory/internal/index"
	"github.com/kapillamba4/codememory/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory for searching",
		Long: `Index a directory to enable code search, documentation search, and history
queries over its contents.

This scans files, parses code symbols and documentation, generates
embeddings, and persists everything into a single SQLite database under
.codememory/ in the target directory. Running it again re-indexes only the
files that changed since the last run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runIndex(ctx, cmd, path, plain)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Force plain text output (no color)")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, plain bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	uiCfg := ui.NewConfig(cmd.OutOrStdout(), ui.WithForcePlain(plain), ui.WithProjectDir(absPath))
	renderer := ui.NewRenderer(uiCfg)
	_ = renderer.Start(ctx)
	defer func() { _ = renderer.Stop() }()

	tracker := newStageTracker(renderer)
	start := time.Now()

	result, errRec := dispatch.IndexCodebase(ctx, absPath, tracker.report)
	if errRec != nil {
		return fmt.Errorf("%s: %s", errRec.Type, errRec.Message)
	}

	stats := ui.CompletionStats{
		Files:    result.FilesIndexed + result.DocFilesIndexed,
		Chunks:   result.DocChunkCount,
		Duration: time.Since(start),
		Errors:   countErrors(result),
		Stages:   tracker.timings(),
	}
	renderer.Complete(stats)

	return nil
}

func countErrors(result *index.Result) int {
	n := 0
	for _, o := range result.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// stageTracker maps the orchestrator's flat (current, total, message) progress callback onto the
// renderer's three named stages, and records per-stage wall time for the final breakdown.
type stageTracker struct {
	renderer   ui.Renderer
	stage      ui.Stage
	stageStart time.Time
	timing     ui.StageTimings
}

func newStageTracker(renderer ui.Renderer) *stageTracker {
	return &stageTracker{renderer: renderer, stage: ui.StageParsing, stageStart: time.Now()}
}

func (t *stageTracker) report(current, total int, message string) {
	stage := t.stage
	switch {
	case message == "parsing" || strings.HasPrefix(message, "parsed "):
		stage = ui.StageParsing
	case message == "embedding":
		stage = ui.StageEmbedding
	case message == "persisting":
		stage = ui.StagePersisting
	case message == "complete":
		stage = ui.StageComplete
	}

	if stage != t.stage {
		t.recordElapsed()
		t.stage = stage
		t.stageStart = time.Now()
	}

	t.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   stage,
		Current: current,
		Total:   total,
		Message: message,
	})
}

func (t *stageTracker) recordElapsed() {
	elapsed := time.Since(t.stageStart)
	switch t.stage {
	case ui.StageParsing:
		t.timing.Parse += elapsed
	case ui.StageEmbedding:
		t.timing.Embed += elapsed
	case ui.StagePersisting:
		t.timing.Persist += elapsed
	}
}

func (t *stageTracker) timings() ui.StageTimings {
	t.recordElapsed()
	t.stageStart = time.Now()
	return t.timing
}
