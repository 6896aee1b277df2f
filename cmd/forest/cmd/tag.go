package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Inspect and manage tags",
	}
	cmd.AddCommand(newTagListCmd())
	cmd.AddCommand(newTagRenameCmd())
	cmd.AddCommand(newTagAddCmd())
	cmd.AddCommand(newTagRemoveCmd())
	return cmd
}

func newTagListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every tag with its document frequency and IDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			tags, err := v.ListTags(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range tags {
				fmt.Fprintf(out, "%-24s df=%-4d idf=%.3f\n", t.Tag, t.DocFreq, t.IDF)
			}
			return nil
		},
	}
}

func newTagRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a tag on every node that carries it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return v.RenameTag(cmd.Context(), args[0], args[1])
		},
	}
}

func newTagAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <ref> <tag>",
		Short: "Add a tag to a node and re-link it",
		Args:  cobra.ExactArgs(2),
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
			return v.AddTag(cmd.Context(), n.ID, args[1])
		},
	}
}

func newTagRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <ref> <tag>",
		Short: "Remove a tag from a node and re-link it",
		Args:  cobra.ExactArgs(2),
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
			return v.RemoveTag(cmd.Context(), n.ID, args[1])
		},
	}
}
