// Package cmd provides the CLI commands for Forest.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/foresthq/forest/internal/core"
	"github.com/foresthq/forest/internal/fconfig"
	"github.com/foresthq/forest/internal/flog"
	"github.com/foresthq/forest/pkg/version"
)

// vaultDir is the persistent --vault flag: the directory whose
// .forest.yaml (if any) layers over the user config.
var (
	vaultDir  string
	debugMode bool
)

// NewRootCmd creates the root command for the forest CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "forest",
		Short:   "A graph-native personal knowledge base",
		Long:    `Forest captures notes as nodes and automatically builds a weighted similarity graph over them.`,
		Version: version.Version,
	}
	rootCmd.SetVersionTemplate("forest version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault", ".", "vault directory (looks for .forest.yaml here)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.forest/logs/")

	rootCmd.AddCommand(newCaptureCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newEdgeCmd())
	rootCmd.AddCommand(newTagCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newSynthesizeCmd())
	rootCmd.AddCommand(newAdminCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// openVault loads the layered configuration for vaultDir and opens the
// assembled core.Vault over it. Every subcommand opens and closes its own
// Vault rather than sharing one across a process lifetime; the data-dir
// file lock keeps concurrent invocations honest.
func openVault(ctx context.Context) (*core.Vault, func(), error) {
	cfg, err := fconfig.Load(vaultDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if debugMode {
		logger, cleanup, err := flog.Setup(flog.DebugConfig())
		if err == nil {
			slog.SetDefault(logger)
			v, openErr := core.Open(ctx, cfg)
			if openErr != nil {
				cleanup()
				return nil, nil, openErr
			}
			return v, func() { _ = v.Close(); cleanup() }, nil
		}
	}

	v, err := core.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return v, func() { _ = v.Close() }, nil
}
