// Package daemonlock enforces the singleton-daemon contract of spec.md §4.2:
// a non-blocking whole-file advisory lock, an optional "lockpick" override
// that terminates a stuck incumbent, and the heartbeat file producers use to
// detect a dead-but-locked daemon. Grounded on the flock usage in
// other_examples/042c7454_ztbrown-gastown__internal-daemon-daemon.go.go.
package daemonlock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
)

// StaleAfter is the heartbeat age past which producers treat the daemon as
// dead (spec.md §4.2, §4.8).
const StaleAfter = 10 * time.Second

var (
	ErrAlreadyRunning = fmt.Errorf("daemonlock: daemon already running")
	ErrLockpickFailed = fmt.Errorf("daemonlock: lockpick failed, daemon still running")
)

// Lock represents the acquired singleton lock; Release drops it.
type Lock struct {
	file *flock.Flock
	path string
}

// Acquire opens lockPath and attempts a non-blocking exclusive lock. If the
// lock is held and lockpick is true, it sends SIGTERM to the PID recorded in
// the lock file, waits up to one second, and retries once.
func Acquire(lockPath string, lockpick bool) (*Lock, error) {
	fl := flock.New(lockPath)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("daemonlock: acquiring lock: %w", err)
	}

	if !locked {
		if !lockpick {
			return nil, ErrAlreadyRunning
		}
		if pid, ok := readPID(lockPath); ok {
			if proc, err := os.FindProcess(pid); err == nil {
				_ = proc.Signal(syscall.SIGTERM)
			}
		}
		time.Sleep(1 * time.Second)

		locked, err = fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("daemonlock: retrying lock: %w", err)
		}
		if !locked {
			return nil, ErrLockpickFailed
		}
	}

	// Written in place, not via rename: replacing the file would swap in a new
	// inode that carries no lock, letting a second daemon acquire it.
	if err := os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("daemonlock: writing pid: %w", err)
	}

	return &Lock{file: fl, path: lockPath}, nil
}

// Release drops the lock. The lock file itself is left in place; a stale PID
// in it is harmless since flock ownership — not file contents — is
// authoritative.
func (l *Lock) Release() error {
	return l.file.Unlock()
}

func readPID(lockPath string) (int, bool) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// WriteHeartbeat atomically rewrites heartbeatPath with the current
// wall-clock instant, as a single UTF-8 float line (spec.md §6 "heartbeat
// file format").
func WriteHeartbeat(heartbeatPath string, now time.Time) error {
	line := strconv.FormatFloat(float64(now.UnixNano())/1e9, 'f', 6, 64)
	return renameio.WriteFile(heartbeatPath, []byte(line), 0o644)
}

// ReadHeartbeatAge returns how long ago heartbeatPath was last written. It
// bypasses nothing special for page-cache freshness beyond a plain open/read,
// which is sufficient on POSIX filesystems for a file rewritten via rename.
func ReadHeartbeatAge(heartbeatPath string, now time.Time) (time.Duration, error) {
	data, err := os.ReadFile(heartbeatPath)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("daemonlock: parsing heartbeat: %w", err)
	}
	written := time.Unix(0, int64(seconds*1e9))
	return now.Sub(written), nil
}

// IsStale reports whether the heartbeat at heartbeatPath is missing or older
// than StaleAfter — the condition under which producers bypass the queue
// (spec.md §4.8 step 3).
func IsStale(heartbeatPath string, now time.Time) bool {
	age, err := ReadHeartbeatAge(heartbeatPath, now)
	if err != nil {
		return true
	}
	return age > StaleAfter
}

// RemoveHeartbeat deletes the heartbeat file on graceful shutdown (spec.md
// §3 "Heartbeat: ... removed on graceful shutdown").
func RemoveHeartbeat(heartbeatPath string) error {
	err := os.Remove(heartbeatPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
