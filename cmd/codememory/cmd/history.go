package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kapillamba4/codememory/internal/dispatch"
)

func newHistoryCmd() *cobra.Command {
	var (
		dir        string
		searchType string
		file       string
		start      int
		end        int
	)

	cmd := &cobra.Command{
		Use:   "history [query-or-commit-hash]",
		Short: "Query a project's git history",
		Long: `Query the git history of an indexed project.

Search types:
  commits         search commit messages (default)
  file_history    log of commits touching --file, following renames
  commit_detail   parent hashes and per-file stat lines for one commit (diff only with --file)
  blame           per-line blame for --file, optionally restricted to --start/--end`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("failed to resolve directory: %w", err)
			}
			query := ""
			if len(args) > 0 {
				query = args[0]
			}

			var lineStart, lineEnd *int
			if start > 0 {
				lineStart = &start
			}
			if end > 0 {
				lineEnd = &end
			}

			result, errRec := dispatch.SearchHistory(cmd.Context(), absDir, query, searchType, file, lineStart, lineEnd)
			if errRec != nil {
				return errRecordError(errRec)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Project directory")
	cmd.Flags().StringVar(&searchType, "type", dispatch.HistoryTypeCommits,
		"Search type: commits, file_history, blame, commit_detail")
	cmd.Flags().StringVar(&file, "file", "", "Target file, required for file_history and blame")
	cmd.Flags().IntVar(&start, "start", 0, "Start line, for blame")
	cmd.Flags().IntVar(&end, "end", 0, "End line, for blame")

	return cmd
}
