// Package main implements deckctl, a command-line client for the nodedeck
// server.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &client{}

	root := &cobra.Command{
		Use:   "deckctl",
		Short: "CLI for nodedeck server operations",
		Long: `deckctl talks to a running nodedeck server. Besides the shortcuts for
project lifecycle, any IPC channel can be invoked with "call".`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.serverURL, "server", "http://127.0.0.1:8080", "nodedeck server URL")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Minute, "request timeout")

	root.AddCommand(
		newCallCmd(c),
		newChannelsCmd(c),
		newProjectsCmd(c),
		newLifecycleCmd(c, "start", "pm2:start", "Start a project under PM2"),
		newLifecycleCmd(c, "stop", "pm2:stop", "Stop a project's PM2 process"),
		newLifecycleCmd(c, "restart", "pm2:restart", "Restart a project's PM2 process"),
		newLogsCmd(c),
		newIDCmd(),
		newHealthCmd(c),
	)
	return root
}
