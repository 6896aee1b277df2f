package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foresthq/forest/internal/core"
)

func newCaptureCmd() *cobra.Command {
	var tags []string
	var noLink bool

	cmd := &cobra.Command{
		Use:   "capture <title> [body]",
		Short: "Create a new node",
		Long: `Capture creates a new node from a title and body, extracting tags from
the text and auto-linking it against the rest of the graph.

Examples:
  forest capture "Migrating to SQLite" "Switched the store layer to modernc.org/sqlite #infra"
  forest capture "Quick note" --tag infra --tag db`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := args[0]
			var body string
			if len(args) == 2 {
				body = args[1]
			}

			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := v.Capture(cmd.Context(), core.CaptureInput{
				Title:     title,
				Body:      body,
				ExtraTags: tags,
				AutoLink:  !noLink,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "captured %s %q (tags: %v)\n", n.ID[:8], n.Title, n.Tags)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "explicit tag to attach (repeatable)")
	cmd.Flags().BoolVar(&noLink, "no-link", false, "skip auto-linking after capture")
	return cmd
}
