package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foresthq/forest/internal/core"
	"github.com/foresthq/forest/internal/output"
)

func newWatchCmd() *cobra.Command {
	var strategy string
	var headerLevel int
	var maxTokens int
	var overlapChars int
	var extensions string

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and keep its documents in sync with the graph",
		Long: `Watch monitors dir for created, modified, and deleted files and keeps
Forest's documents in sync: new and changed files are (re)imported and
re-linked into the graph; files whose backing document disappears are
removed from it. Runs until interrupted.

Example:
  forest watch ./notes --ext .md,.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			out := output.New(cmd.OutOrStdout())
			out.Statusf("👀", "watching %s for changes (ctrl-c to stop)", dir)

			var exts []string
			for _, e := range strings.Split(extensions, ",") {
				e = strings.TrimSpace(e)
				if e != "" {
					exts = append(exts, e)
				}
			}

			opts := core.DocumentImportOptions{
				Strategy:     strategy,
				HeaderLevel:  headerLevel,
				MaxTokens:    maxTokens,
				OverlapChars: overlapChars,
			}

			err = v.WatchImports(cmd.Context(), dir, exts, opts)
			if err != nil && cmd.Context().Err() != nil {
				out.Status("", "stopped")
				return nil
			}
			if err != nil {
				out.Errorf("watch stopped: %v", err)
				return fmt.Errorf("watch: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "hybrid", "chunking strategy: headers, size, or hybrid")
	cmd.Flags().IntVar(&headerLevel, "header-level", 2, "markdown header depth to split on")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 300, "maximum tokens per size-based chunk")
	cmd.Flags().IntVar(&overlapChars, "overlap", 0, "character overlap between adjacent size-based chunks")
	cmd.Flags().StringVar(&extensions, "ext", ".md,.txt", "comma-separated file extensions to watch")
	return cmd
}
