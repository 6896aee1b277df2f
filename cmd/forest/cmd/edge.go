package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foresthq/forest/internal/core"
	"github.com/foresthq/forest/internal/output"
)

func newEdgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Inspect and manage edges between nodes",
	}
	cmd.AddCommand(newEdgeListCmd())
	cmd.AddCommand(newEdgeAcceptCmd())
	cmd.AddCommand(newEdgeRejectCmd())
	cmd.AddCommand(newEdgeExplainCmd())
	cmd.AddCommand(newEdgeLinkCmd())
	return cmd
}

// resolvePairArgs resolves two positional node references to their ids.
func resolvePairArgs(ctx context.Context, v *core.Vault, a, c string) (string, string, error) {
	na, err := v.Resolve(ctx, a, 0)
	if err != nil {
		return "", "", err
	}
	nc, err := v.Resolve(ctx, c, 0)
	if err != nil {
		return "", "", err
	}
	return na.ID, nc.ID, nil
}

func newEdgeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <ref>",
		Short: "List every edge touching a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := v.Resolve(cmd.Context(), args[0], 0)
			if err != nil {
				return err
			}
			edges, err := v.ListEdges(cmd.Context(), n.ID)
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			for _, e := range edges {
				out.EdgeChange(string(e.Type), e.SourceID[:8], e.TargetID[:8], e.Score)
				if len(e.SharedTags) > 0 {
					out.Statusf("", "shared: %v", e.SharedTags)
				}
			}
			return nil
		},
	}
}

func newEdgeAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <ref-a> <ref-b>",
		Short: "Confirm an edge between two nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			a, c, err := resolvePairArgs(cmd.Context(), v, args[0], args[1])
			if err != nil {
				return err
			}
			return v.AcceptEdge(cmd.Context(), a, c)
		},
	}
}

func newEdgeRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <ref-a> <ref-b>",
		Short: "Delete the edge between two nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			a, c, err := resolvePairArgs(cmd.Context(), v, args[0], args[1])
			if err != nil {
				return err
			}
			return v.RejectEdge(cmd.Context(), a, c)
		},
	}
}

func newEdgeExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <ref-a> <ref-b>",
		Short: "Show the score breakdown behind an edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			a, c, err := resolvePairArgs(cmd.Context(), v, args[0], args[1])
			if err != nil {
				return err
			}
			exp, err := v.ExplainEdge(cmd.Context(), a, c)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if exp.Semantic != nil {
				fmt.Fprintf(out, "semantic: %.3f\n", *exp.Semantic)
			}
			if exp.Tag != nil {
				fmt.Fprintf(out, "tag:      %.3f\n", *exp.Tag)
			}
			fmt.Fprintf(out, "fused:    %.3f\n", exp.Fused)
			fmt.Fprintf(out, "shared:   %v\n", exp.SharedTags)
			fmt.Fprintf(out, "reason:   %s\n", exp.Reason)
			return nil
		},
	}
}

func newEdgeLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <ref-a> <ref-b>",
		Short: "Manually link two nodes, bypassing scoring thresholds",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			a, c, err := resolvePairArgs(cmd.Context(), v, args[0], args[1])
			if err != nil {
				return err
			}
			if err := v.LinkManual(cmd.Context(), a, c); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Success("linked")
			return nil
		},
	}
}
