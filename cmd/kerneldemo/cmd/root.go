package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion prints version information
func PrintVersion() string {
	return fmt.Sprintf("kerneldemo v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// NewRootCommand creates the root command for the kerneldemo application
func NewRootCommand() *cobra.Command {
	settings := &appSettings{}

	cmd := &cobra.Command{
		Use:   "kerneldemo",
		Short: "Kernel demo - a small blog served by the kernel",
		Long: `kerneldemo wires the kernel with the chimux router module and a demo
blog module. It can serve the blog over HTTP and inspect its routes.`,
		Version:      PrintVersion(),
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&settings.optionsFile, "options", "", "YAML file with the application options")
	flags.StringVar(&settings.routesFile, "routes", "", "YAML routing file (defaults to the built-in demo routes)")
	flags.StringVar(&settings.baseURL, "base-url", "", "prefix the router is mounted under")
	flags.StringVar(&settings.environment, "env", "", "environment: development or production")
	flags.BoolVar(&settings.debug, "debug", false, "enable debug mode")

	cmd.AddCommand(NewServeCommand(settings))
	cmd.AddCommand(NewRoutesCommand(settings))
	cmd.AddCommand(NewMatchCommand(settings))

	return cmd
}
