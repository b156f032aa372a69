package main

import (
	"fmt"
	"os"

	"github.com/voicebus/voicebusd/internal/app"
	"github.com/voicebus/voicebusd/internal/lifecycle"
	"github.com/voicebus/voicebusd/internal/scheduler"
)

// cmdStart implements `voicebusd start` (spec.md §4.7 "Daemonize"). Without
// --foreground it re-execs itself detached and returns immediately; with it,
// it runs the scheduler loop inline until shutdown, restart, or stop.
func cmdStart(paths app.Paths, foreground, lockpick bool) error {
	if !foreground {
		args := append(os.Args[1:], "--foreground")
		if err := lifecycle.Daemonize(args); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}
		fmt.Println("daemon starting in background")
		return nil
	}

	return runForeground(paths, lockpick)
}

// runForeground acquires the singleton lock, wires the daemon, and runs the
// scheduler loop until it exits for any reason, re-exec'ing itself on a
// restart control message (spec.md §4.6).
func runForeground(paths app.Paths, lockpick bool) error {
	daemon, err := app.Build(paths, true)
	if err != nil {
		return err
	}

	lock, err := daemon.AcquireLock(lockpick)
	if err != nil {
		daemon.Close()
		return fmt.Errorf("acquire daemon lock: %w", err)
	}

	// A restart leaves its control message on disk until the new instance
	// acknowledges it here (spec.md §4.6 step 2, DESIGN.md's decision on
	// restart control-message deletion timing).
	if err := daemon.Scheduler.CleanupCompletedRestart(); err != nil {
		daemon.Logger.Warn("restart cleanup failed", "error", err.Error())
	}

	if err := lifecycle.WritePID(paths.PIDFile); err != nil {
		daemon.Logger.Warn("write PID file failed", "error", err.Error())
	}

	watcher := lifecycle.NewSignalWatcher()
	go watcher.Watch(daemon.Scheduler.RequestShutdown)

	reason := daemon.Scheduler.Run()
	daemon.Logger.Info("scheduler exited", "reason", fmt.Sprint(int(reason)))

	lifecycle.RemovePID(paths.PIDFile)
	lock.Release()
	daemon.Close()

	if reason == scheduler.ExitRestart {
		return lifecycle.Daemonize(append(os.Args[1:], "--foreground"))
	}
	return nil
}
