package main

import (
	"fmt"

	"github.com/voicebus/voicebusd/internal/app"
	"github.com/voicebus/voicebusd/internal/daemonlock"
	"github.com/voicebus/voicebusd/internal/lifecycle"
)

// cmdStop implements `voicebusd stop` (spec.md §4.7 "Shutdown from CLI").
func cmdStop(paths app.Paths) error {
	pid, ok := lifecycle.ReadPID(paths.PIDFile)
	if !ok || !lifecycle.IsAlive(pid) {
		fmt.Println("daemon not running")
		lifecycle.RemovePID(paths.PIDFile)
		daemonlock.RemoveHeartbeat(paths.Heartbeat)
		return nil
	}

	if err := lifecycle.Stop(pid, nil); err != nil {
		return fmt.Errorf("stop daemon: %w", err)
	}

	// Unconditional cleanup even if the kill path was taken (spec.md §4.7:
	// "removes the heartbeat and PID files unconditionally").
	lifecycle.RemovePID(paths.PIDFile)
	daemonlock.RemoveHeartbeat(paths.Heartbeat)

	fmt.Println("daemon stopped")
	return nil
}
