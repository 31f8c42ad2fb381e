package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kapillamba4/codememory/internal/dispatch"
)

func newDocsCmd() *cobra.Command {
	var (
		dir  string
		topK int
	)

	cmd := &cobra.Command{
		Use:   "docs <query>",
		Short: "Search indexed documentation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("failed to resolve directory: %w", err)
			}

			results, errRec := dispatch.SearchDocs(cmd.Context(), absDir, args[0], topK)
			if errRec != nil {
				return errRecordError(errRec)
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Project directory to search")
	cmd.Flags().IntVar(&topK, "top-k", 10, "Number of results to return (1-100)")

	return cmd
}
