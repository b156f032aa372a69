// Command voicebusd is the daemon's CLI entrypoint: start/stop/status
// (spec.md §6). Cobra wiring grounded on
// other_examples/ef27b822_alnah-go-transcript__internal-cli-live.go.go.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voicebus/voicebusd/internal/app"
)

// Exit codes per spec.md §6: 0 success, 1 already-running/I/O error, 2 misuse.
const (
	exitOK     = 0
	exitFailed = 1
	exitMisuse = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var root string
	var foreground bool
	var lockpick bool

	misuse := false

	rootCmd := &cobra.Command{
		Use:          "voicebusd",
		Short:        "Serialize TTS playback across concurrent AI CLI sessions",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&root, "home", app.DefaultRoot(), "app directory (default $VOICEBUS_HOME or ~/.voicebus)")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		misuse = true
		return err
	})

	noArgs := func(cmd *cobra.Command, args []string) error {
		if err := cobra.NoArgs(cmd, args); err != nil {
			misuse = true
			return err
		}
		return nil
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdStart(app.NewPaths(root), foreground, lockpick)
		},
	}
	startCmd.Flags().BoolVar(&foreground, "foreground", false, "run inline instead of detaching")
	startCmd.Flags().BoolVar(&lockpick, "lockpick", false, "force takeover of a stale daemon lock")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdStop(app.NewPaths(root))
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report daemon status",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdStatus(app.NewPaths(root))
		},
	}

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "voicebusd:", err)
		if misuse {
			return exitMisuse
		}
		return exitFailed
	}
	return exitOK
}
