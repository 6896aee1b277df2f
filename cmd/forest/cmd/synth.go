package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/foresthq/forest/internal/store"
)

func newSynthesizeCmd() *cobra.Command {
	var title string
	var body string

	cmd := &cobra.Command{
		Use:   "synthesize <ref> <ref> [ref...]",
		Short: "Create a node synthesized from two or more source nodes",
		Long: `Synthesize persists a node whose body the caller supplies (typically
produced by an LLM summarizing the listed sources), records
origin=synthesis and the source node ids in its metadata, and auto-links
it. If --body is omitted, the body is read from stdin.

Examples:
  forest synthesize a1b2 c3d4 --title "Combined notes" --body "..."
  cat summary.md | forest synthesize a1b2 c3d4 e5f6 --title "Weekly digest"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return fmt.Errorf("--title is required")
			}
			if body == "" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read body from stdin: %w", err)
				}
				body = string(data)
			}

			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			ids := make([]string, 0, len(args))
			for _, ref := range args {
				n, err := v.Resolve(cmd.Context(), ref, 0)
				if err != nil {
					return err
				}
				ids = append(ids, n.ID)
			}

			n, err := v.Synthesize(cmd.Context(), ids, func(_ []*store.Node) (string, string, error) {
				return title, body, nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synthesized %s %q from %d sources\n", n.ID[:8], n.Title, len(ids))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "the synthesized node's title")
	cmd.Flags().StringVar(&body, "body", "", "the synthesized node's body (reads stdin if omitted)")
	return cmd
}
