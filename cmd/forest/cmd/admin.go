package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/foresthq/forest/internal/linking"
	"github.com/foresthq/forest/internal/output"
	"github.com/foresthq/forest/internal/snapshot"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative operations: bulk-link, rescore, re-embed, undo",
	}
	cmd.AddCommand(newAdminBulkLinkCmd())
	cmd.AddCommand(newAdminRescoreCmd())
	cmd.AddCommand(newAdminReembedCmd())
	cmd.AddCommand(newAdminUndoCmd())
	cmd.AddCommand(newAdminMigrateCmd())
	cmd.AddCommand(newAdminSnapshotCmd())
	cmd.AddCommand(newAdminDiffCmd())
	return cmd
}

func newAdminBulkLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-link [ref...]",
		Short: "Run bulk pairwise linking for the given nodes (or the whole corpus)",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			out := output.New(cmd.OutOrStdout())
			if len(ids) == 0 {
				out.Status("🔗", "bulk-linking the whole corpus")
			} else {
				out.Statusf("🔗", "bulk-linking %d node(s)", len(ids))
			}
			if err := v.BulkLink(cmd.Context(), ids); err != nil {
				return err
			}
			out.Success("bulk-link complete")
			return nil
		},
	}
}

func newAdminRescoreCmd() *cobra.Command {
	var layerFlag string
	var reEmbed bool

	cmd := &cobra.Command{
		Use:   "rescore",
		Short: "Rebuild tag IDF and recompute edge scores across the whole corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layer := linking.ScoreLayerBoth
			switch layerFlag {
			case "semantic":
				layer = linking.ScoreLayerSemanticOnly
			case "tag":
				layer = linking.ScoreLayerTagOnly
			case "", "both":
			default:
				return fmt.Errorf("unknown layer %q (want both, semantic, or tag)", layerFlag)
			}

			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			out := output.New(cmd.OutOrStdout())
			out.Statusf("⏳", "rescoring (layer=%s, re-embed=%t)", layerFlag, reEmbed)
			if err := v.RescoreAll(cmd.Context(), layer, reEmbed); err != nil {
				return err
			}
			out.Success("rescore complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&layerFlag, "layer", "both", "score layer to recompute: both, semantic, or tag")
	cmd.Flags().BoolVar(&reEmbed, "re-embed", false, "re-embed nodes with a missing or mismatched embedding first")
	return cmd
}

func newAdminReembedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reembed",
		Short: "Re-embed every node missing an embedding for the active provider and rescore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			out := output.New(cmd.OutOrStdout())
			out.Status("⏳", "re-embedding stale nodes")
			if err := v.ReembedAll(cmd.Context()); err != nil {
				return err
			}
			out.Success("re-embed complete")
			return nil
		},
	}
}

func newAdminUndoCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Revert the last N edge events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := v.Undo(cmd.Context(), count)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "undid %d edge event(s)\n", n)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of edge events to undo")
	return cmd
}

func newAdminMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending storage schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			from, to, err := v.MigrateStorage(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if from == to {
				fmt.Fprintf(out, "storage schema already current (version %d)\n", to)
			} else {
				fmt.Fprintf(out, "migrated storage schema from version %d to %d\n", from, to)
			}
			return nil
		},
	}
}

func newAdminSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Write a point-in-time snapshot of the graph's node/edge identity to file",
		Long: `Snapshot captures enough of the graph's current state (node and edge ids
and their last-updated timestamps) to later diff against with "forest admin
diff". It does not capture node content.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := v.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote snapshot to %s\n", args[0])
			return nil
		},
	}
}

func newAdminDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <file>",
		Short: "Compare a previously saved snapshot against the graph's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			var before snapshot.Snapshot
			if err := json.Unmarshal(data, &before); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}

			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			after, err := v.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			d := snapshot.Compare(&before, after)
			out := cmd.OutOrStdout()
			if d.IsEmpty() {
				fmt.Fprintln(out, "no changes")
				return nil
			}
			printIDs(out, "added nodes", d.AddedNodes)
			printIDs(out, "removed nodes", d.RemovedNodes)
			printIDs(out, "touched nodes", d.TouchedNodes)
			printPairs(out, "added edges", d.AddedEdges)
			printPairs(out, "removed edges", d.RemovedEdges)
			printPairs(out, "touched edges", d.TouchedEdges)
			return nil
		},
	}
}

func printIDs(out io.Writer, label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(out, "%s (%d):\n", label, len(ids))
	for _, id := range ids {
		fmt.Fprintf(out, "  %s\n", id)
	}
}

func printPairs(out io.Writer, label string, pairs [][2]string) {
	if len(pairs) == 0 {
		return
	}
	fmt.Fprintf(out, "%s (%d):\n", label, len(pairs))
	for _, p := range pairs {
		fmt.Fprintf(out, "  %s <-> %s\n", p[0], p[1])
	}
}
