package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kapillamba4/codememory/internal/config"
	"github.com/kapillamba4/codememory/internal/dispatch"
	"github.com/kapillamba4/codememory/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var (
		dir        string
		jsonOutput bool
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a project is indexed and summarize its index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("failed to resolve directory: %w", err)
			}

			idxStatus, errRec := dispatch.CheckIndexStatus(absDir)
			if errRec != nil {
				return errRecordError(errRec)
			}

			info := ui.StatusInfo{ProjectName: filepath.Base(absDir)}

			if idxStatus.Exists {
				stats, errRec := dispatch.GetIndexStats(cmd.Context(), absDir)
				if errRec != nil {
					return errRecordError(errRec)
				}
				info.TotalFiles = stats.FileCount
				info.DocFiles = stats.DocFileCount
				info.SymbolCount = stats.SymbolCount
				info.DocChunkCount = stats.DocChunkCount
				info.DatabaseSize = stats.DatabaseSizeBytes
				info.JournalMode = stats.JournalMode
				if stats.WALPresent {
					info.WALSize = stats.WALSizeBytes
				}
				info.EmbedderModel = stats.EmbeddingModel
				info.EmbedderDim = stats.EmbeddingDimension
				info.EmbedderStatus = "ready"
				if stats.LastFileIndexed != nil {
					info.LastIndexed = *stats.LastFileIndexed
				}
				if cfg, err := config.Load(absDir); err == nil {
					info.EmbedderType = cfg.Embeddings.Provider
				}
			} else {
				info.EmbedderStatus = "offline"
			}

			if jsonOutput {
				renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), true)
				return renderer.RenderJSON(info)
			}

			if !idxStatus.Exists {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s is not indexed. Run 'codememory index' first.\n", absDir)
				return err
			}

			renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor)
			return renderer.Render(info)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Project directory")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}
