package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kapillamba4/codememory/internal/dispatch"
)

func newSearchCmd() *cobra.Command {
	var (
		dir         string
		searchType  string
		path        string
		withContext bool
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search code symbols, references, topics, or file structure",
		Long: `Search an indexed codebase.

Search types:
  topic_discovery  rank files by semantic similarity to a topic (default)
  definition       find where a symbol is defined
  references       find heuristic occurrences of a symbol
  file_structure   list every symbol of one file with its parent (use --path)`,
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

			result, errRec := dispatch.SearchCode(cmd.Context(), absDir, query, searchType, path, withContext, limit)
			if errRec != nil {
				return errRecordError(errRec)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Project directory to search")
	cmd.Flags().StringVar(&searchType, "type", dispatch.SearchTypeTopicDiscovery,
		"Search type: topic_discovery, definition, references, file_structure")
	cmd.Flags().StringVar(&path, "path", "", "File path, required for file_structure")
	cmd.Flags().BoolVar(&withContext, "context", false, "Include surrounding source context")
	cmd.Flags().IntVar(&limit, "limit", 0, "Result limit (topic_discovery only, default 15)")

	return cmd
}
