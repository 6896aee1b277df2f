package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foresthq/forest/internal/core"
)

func newImportCmd() *cobra.Command {
	var strategy string
	var headerLevel int
	var maxTokens int
	var overlapChars int

	cmd := &cobra.Command{
		Use:   "import <title> <file>",
		Short: "Import a document, chunking it into nodes",
		Long: `Import splits a document's body into segment nodes per the chosen
chunking strategy (headers, size, or hybrid), materializes the root and
chunk nodes plus their structural edges, and links the whole document
into the graph.

Examples:
  forest import "Design doc" ./docs/design.md
  forest import "Design doc" ./docs/design.md --strategy size --max-tokens 400`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := args[0]
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}

			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := v.ImportDocument(cmd.Context(), title, string(data), core.DocumentImportOptions{
				Strategy:     strategy,
				HeaderLevel:  headerLevel,
				MaxTokens:    maxTokens,
				OverlapChars: overlapChars,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported document %s (%d chunks)\n", res.Document.ID[:8], len(res.ChunkNodeIDs))
			for _, id := range res.ChunkNodeIDs {
				fmt.Fprintf(out, "  chunk %s\n", id[:8])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "hybrid", "chunking strategy: headers, size, or hybrid")
	cmd.Flags().IntVar(&headerLevel, "header-level", 2, "markdown header depth to split on")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 300, "maximum tokens per size-based chunk")
	cmd.Flags().IntVar(&overlapChars, "overlap", 0, "character overlap between adjacent size-based chunks")
	return cmd
}
