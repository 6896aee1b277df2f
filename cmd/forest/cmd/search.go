package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foresthq/forest/internal/core"
)

func newSearchCmd() *cobra.Command {
	var tags []string
	var limit int
	var semantic bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search nodes by tags/text or by meaning",
		Long: `Search ranks nodes either lexically (token overlap plus an optional tag
filter) or, with --semantic, by embedding the query and ranking by cosine
similarity against every node's stored embedding.

Examples:
  forest search "sqlite migration"
  forest search --tag infra --tag db ""
  forest search --semantic "how does linking decide bridge tags"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if semantic {
				results, err := v.SearchSemantic(cmd.Context(), query, limit)
				if err != nil {
					return err
				}
				for _, r := range results {
					fmt.Fprintf(out, "%.3f  %s  %s\n", r.Score, r.Node.ID[:8], r.Node.Title)
				}
				return nil
			}

			results, err := v.SearchMetadata(cmd.Context(), query, core.MetadataSearchOptions{Tags: tags, Limit: limit})
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(out, "%.3f  %s  %s  %s\n", r.Score, r.Node.ID[:8], r.Node.Title, strings.Join(r.Node.Tags, ","))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "require this tag (repeatable, AND semantics)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results")
	cmd.Flags().BoolVar(&semantic, "semantic", false, "rank by embedding cosine similarity instead of lexical overlap")
	return cmd
}
