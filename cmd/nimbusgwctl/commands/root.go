// Package commands implements nimbusgwctl's operator subcommands: config init,
// placement-view inspection, upload listing, and account token minting.
//
// Grounded on the teacher's cmd/dfsctl/commands root command tree and
// persistent-flag wiring, adapted from a remote API client to a tool that loads
// the same config.Config the server daemon loads and inspects its state directly
// (this gateway has no admin HTTP API for the CLI to talk to).
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "nimbusgwctl",
	Short:         "nimbusgw operator CLI",
	Long:          `nimbusgwctl is the administration tool for a nimbusgw gateway deployment: it reads the same configuration file the gatewayd daemon does and operates directly against the metadata store and placement view it describes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/nimbusgw/config.yaml)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(placementCmd)
	rootCmd.AddCommand(uploadsCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(completionCmd)
}
