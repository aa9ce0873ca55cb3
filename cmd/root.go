// Package cmd implements the lombridge command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/lombridge/cli"
	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/pkg/profiling"
	"github.com/grovetools/lombridge/version"
)

// NewRootCmd assembles the lombridge command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"lombridge",
		"Drive a live object graph over a JSON socket protocol",
	)
	root.Long = `lombridge runs a host that owns a live object graph and serves
path-based get, set and call operations over TCP, and provides client
commands that talk to it.

Examples:
  # Start the host in the foreground
  lombridge host start

  # Read and write through the accessor
  lombridge get "tracks 0.name"
  lombridge set song.tempo 124
  lombridge call song.create_midi_track -1

  # Run a batch of actions
  lombridge batch session.yml`
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.PersistentFlags().String("address", "", "Host address for client commands (overrides client.address)")
	cli.SetVersionTemplate(root, version.GetInfo())

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(root)
	root.PersistentPreRunE = profiler.PreRun
	root.PersistentPostRun = profiler.PostRun

	root.AddCommand(
		NewHostCmd(),
		NewGetCmd(),
		NewSetCmd(),
		NewCallCmd(),
		NewSendCmd(),
		NewSessionCmd(),
		NewBatchCmd(),
		NewMonitorCmd(),
		NewLogsCmd(),
		NewConfigCmd(),
		NewPathsCmd(),
		cli.NewVersionCommand("lombridge"),
	)
	cli.ApplyStyledHelpRecursive(root)
	return root
}

// Execute runs the root command and reports any error. Usage errors get a
// help hint; coded errors go through the ErrorHandler.
func Execute() error {
	root := NewRootCmd()
	cmd, err := root.ExecuteC()
	if err == nil {
		return nil
	}
	if errors.GetCode(err) == "" {
		cli.PrintError(cmd, err)
		return err
	}
	return cli.NewErrorHandler(cli.GetOptions(cmd).Verbose).Handle(err)
}
