package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var selectHint int

	cmd := &cobra.Command{
		Use:   "show <ref>",
		Short: "Resolve a node reference and print it",
		Long: `Show resolves a reference (id prefix, @N recency index, #tag, or a quoted
text fragment) against the progressive-id grammar and prints the node.

Examples:
  forest show a1b2
  forest show @0
  forest show '"onboarding doc"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := v.Resolve(cmd.Context(), args[0], selectHint)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:    %s\n", n.ID)
			fmt.Fprintf(out, "title: %s\n", n.Title)
			fmt.Fprintf(out, "tags:  %v\n", n.Tags)
			fmt.Fprintf(out, "created: %s  updated: %s\n", n.CreatedAt.Format("2006-01-02 15:04"), n.UpdatedAt.Format("2006-01-02 15:04"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, n.Body)
			return nil
		},
	}

	cmd.Flags().IntVar(&selectHint, "select", 0, "disambiguate an ambiguous reference by its 1-based position")
	return cmd
}
