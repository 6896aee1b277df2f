package cmd

import (
	"github.com/spf13/cobra"

	"github.com/foresthq/forest/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over the vault",
		Long: `Serve starts an MCP server exposing capture, read, search, edge, tag,
import, synthesize, and admin tools over the vault, for editor and agent
integration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			srv, err := mcp.NewServer(v)
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context(), transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport to use (only stdio is supported today)")
	return cmd
}
