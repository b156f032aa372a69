// Package lifecycle manages daemonization, signal handling, and
// stop/status operations for the daemon process (spec.md §4.7). Grounded on
// original_source/scripts/tts-daemon.py's start_daemon/stop_daemon/
// daemon_status and the signal-channel shutdown plumbing in
// other_examples/e03ba45f_ConfabulousDev-confab__pkg-daemon-daemon.go.go.
package lifecycle

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/voicebus/voicebusd/internal/obslog"
)

// ShutdownDeadline bounds how long `stop` waits for a graceful exit before
// sending SIGKILL (spec.md §4.7: "polls the PID for up to 15 s").
const ShutdownDeadline = 15 * time.Second

// Daemonize detaches the current process into the background by re-exec'ing
// itself with the given args and a new session, then returns without waiting
// for the child; the calling process is left to exit on its own. Go
// cannot literally double-fork (no fork(2) without cgo trickery); self-re-exec
// plus Setsid is the standard substitute — the PID file, heartbeat, and
// graceful-shutdown contract are unaffected (spec.md §9).
func Daemonize(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("lifecycle: resolve executable: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("lifecycle: open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(exe, args...)
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.Dir = "/"
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("lifecycle: spawn background daemon: %w", err)
	}
	return nil
}

// SignalWatcher delivers SIGTERM/SIGINT as shutdown requests. Ignores
// SIGHUP so the daemon survives its controlling terminal closing, matching
// spec.md §4.7 "ignore terminal-hangup signal."
type SignalWatcher struct {
	ch chan os.Signal
}

// NewSignalWatcher registers for SIGTERM/SIGINT and ignores SIGHUP.
func NewSignalWatcher() *SignalWatcher {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
	signal.Ignore(syscall.SIGHUP)
	return &SignalWatcher{ch: ch}
}

// Watch blocks until a shutdown signal arrives, then calls onShutdown.
// Intended to run in its own goroutine for the lifetime of the daemon.
func (w *SignalWatcher) Watch(onShutdown func()) {
	<-w.ch
	onShutdown()
}

// WritePID atomically-enough writes the current PID to path (plain write is
// fine here: the daemon lock, not this file, is the concurrency guard).
func WritePID(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// RemovePID deletes the PID file; a missing file is not an error.
func RemovePID(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// ReadPID reads a PID file, returning ok=false if it doesn't exist or is
// malformed.
func ReadPID(path string) (pid int, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// IsAlive reports whether pid refers to a live process, using signal 0
// (spec.md §4.7 stop/status semantics; original_source's os.kill(pid, 0)).
func IsAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Stop sends a graceful-terminate to pid, polls for up to ShutdownDeadline,
// and sends SIGKILL if the process is still alive (spec.md §4.7 "Shutdown
// from CLI").
func Stop(pid int, logger obslog.Logger) error {
	if logger == nil {
		logger = obslog.NoOpLogger{}
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("lifecycle: find process %d: %w", pid, err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("lifecycle: send SIGTERM to %d: %w", pid, err)
	}

	deadline := time.Now().Add(ShutdownDeadline)
	for time.Now().Before(deadline) {
		if !IsAlive(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	logger.Warn("daemon still alive after graceful deadline, killing", "pid", pid)
	return proc.Signal(syscall.SIGKILL)
}
