// Package commands implements the perchd command line interface.
package commands

import "github.com/spf13/cobra"

// Build information set by main.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "perchd",
	Short: "Perch WebDAV access control server",
	Long: `Perch serves hierarchical WebDAV access control lists: effective
ACL computation with inheritance, privilege checks, and the ACL method,
over a pluggable property store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
