package main

import (
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

// Set via -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

var (
	cfgPath string
	devMode bool
	dryRun  bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fermi-notifier",
		Short: "Generates a Fermi estimation problem and pushes it to an ntfy topic",
		Long: `fermi-notifier asks a generative-language model for a novel Fermi
estimation problem and publishes it as a push notification.

Without a subcommand it serves the HTTP trigger (same as "serve").`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to optional YAML config file")
	root.PersistentFlags().BoolVar(&devMode, "dev", false, "developer mode (console logs, unredacted secrets)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger and operational endpoints",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline run and exit; the exit code reflects the result",
		Args:  cobra.NoArgs,
		RunE:  runOnce,
	}
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the notification instead of publishing it")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("fermi-notifier %s (%s)\n", version, commit)
		},
	}

	root.AddCommand(serveCmd, runCmd, versionCmd)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
