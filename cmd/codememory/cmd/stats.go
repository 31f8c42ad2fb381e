package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kapillamba4/codememory/internal/dispatch"
	"github.com/kapillamba4/codememory/internal/ui"
)

func newStatsCmd() *cobra.Command {
	var (
		dir        string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show detailed index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("failed to resolve directory: %w", err)
			}

			stats, errRec := dispatch.GetIndexStats(cmd.Context(), absDir)
			if errRec != nil {
				return errRecordError(errRec)
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), stats)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Files:        %d\n", stats.FileCount)
			_, _ = fmt.Fprintf(out, "Doc files:    %d\n", stats.DocFileCount)
			_, _ = fmt.Fprintf(out, "Symbols:      %d\n", stats.SymbolCount)
			_, _ = fmt.Fprintf(out, "References:   %d\n", stats.ReferenceCount)
			_, _ = fmt.Fprintf(out, "Doc chunks:   %d\n", stats.DocChunkCount)
			_, _ = fmt.Fprintln(out)

			if len(stats.SymbolKinds) > 0 {
				_, _ = fmt.Fprintln(out, "Symbol kinds:")
				for _, sk := range stats.SymbolKinds {
					_, _ = fmt.Fprintf(out, "  %-12s %d\n", sk.Kind, sk.Count)
				}
				_, _ = fmt.Fprintln(out)
			}

			if len(stats.TopExtensions) > 0 {
				_, _ = fmt.Fprintln(out, "Top extensions:")
				for _, ext := range stats.TopExtensions {
					_, _ = fmt.Fprintf(out, "  %-12s %d\n", ext.Extension, ext.Count)
				}
				_, _ = fmt.Fprintln(out)
			}

			_, _ = fmt.Fprintf(out, "Embedding model: %s (%d dims)\n", stats.EmbeddingModel, stats.EmbeddingDimension)
			_, _ = fmt.Fprintf(out, "Database:        %s (%s)\n", ui.FormatBytes(stats.DatabaseSizeBytes), stats.JournalMode)
			if stats.WALPresent {
				_, _ = fmt.Fprintf(out, "WAL sidecar:     %s\n", ui.FormatBytes(stats.WALSizeBytes))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Project directory")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
