// Package app wires together the daemon's packages: queue, config,
// playback driver, scheduler, and lifecycle. It is the one place that
// knows the on-disk layout of the application directory, keeping that
// knowledge out of cmd/voicebusd's flag-parsing code.
package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/voicebus/voicebusd/internal/daemonlock"
	"github.com/voicebus/voicebusd/internal/obslog"
	"github.com/voicebus/voicebusd/internal/playback"
	"github.com/voicebus/voicebusd/internal/scheduler"
	"github.com/voicebus/voicebusd/pkg/bus"
	"github.com/voicebus/voicebusd/pkg/persona"
)

// Paths collects every file the daemon touches under one app directory
// (spec.md §3, §4.2, §4.3 name these files individually; this struct is
// where they're rooted).
type Paths struct {
	Root      string
	ConfigDir string
	QueueDir  string
	Playback  string
	Heartbeat string
	LockFile  string
	PIDFile   string
	LogFile   string
	VoicesDir string
}

// DefaultRoot resolves the app directory: $VOICEBUS_HOME if set (loaded
// from an optional .env beside the caller's cwd, per SPEC_FULL.md's
// ambient-config section), else ~/.voicebus.
func DefaultRoot() string {
	_ = godotenv.Load()
	if home := os.Getenv("VOICEBUS_HOME"); home != "" {
		return home
	}
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".voicebus")
	}
	return ".voicebus"
}

// NewPaths derives every daemon file path from root.
func NewPaths(root string) Paths {
	return Paths{
		Root:      root,
		ConfigDir: root,
		QueueDir:  filepath.Join(root, "queue"),
		Playback:  filepath.Join(root, "playback.json"),
		Heartbeat: filepath.Join(root, "daemon.heartbeat"),
		LockFile:  filepath.Join(root, "daemon.lock"),
		PIDFile:   filepath.Join(root, "daemon.pid"),
		LogFile:   filepath.Join(root, "daemon.log"),
		VoicesDir: filepath.Join(root, "voices"),
	}
}

// ConfigPath is the persona config file's location.
func (p Paths) ConfigPath() string { return filepath.Join(p.ConfigDir, "config.json") }

// Daemon bundles the assembled components `start`/`--foreground` runs.
type Daemon struct {
	Paths     Paths
	Config    *persona.Config
	Queue     *bus.Queue
	Store     *playback.Store
	Driver    *playback.Driver
	Scheduler *scheduler.Scheduler
	Logger    obslog.Logger
	logCloser io.Closer
}

// synthBinary is the external text-to-speech command (spec.md §4.4);
// overridable via VOICEBUS_SYNTH_BINARY for test and CI environments that
// stub it out.
func synthBinary() string {
	if bin := os.Getenv("VOICEBUS_SYNTH_BINARY"); bin != "" {
		return bin
	}
	return "piper"
}

// Build assembles a Daemon from paths, creating the app directory tree and
// loading (or defaulting) the persona config.
func Build(paths Paths, foreground bool) (*Daemon, error) {
	if err := os.MkdirAll(paths.ConfigDir, 0o755); err != nil {
		return nil, fmt.Errorf("app: create app dir: %w", err)
	}

	logger, closer, err := obslog.New(paths.LogFile, foreground)
	if err != nil {
		return nil, fmt.Errorf("app: open log: %w", err)
	}

	cfg, err := persona.Load(paths.ConfigPath())
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("app: load config: %w", err)
	}

	queue, err := bus.New(paths.QueueDir, logger)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("app: open queue: %w", err)
	}

	store := playback.NewStore(paths.Playback)
	driver := playback.NewDriver(synthBinary(), paths.VoicesDir, store, logger)
	sched := scheduler.New(queue, store, driver, &cfg, paths.Heartbeat, logger)

	return &Daemon{
		Paths:     paths,
		Config:    &cfg,
		Queue:     queue,
		Store:     store,
		Driver:    driver,
		Scheduler: sched,
		Logger:    logger,
		logCloser: closer,
	}, nil
}

// Close releases the daemon's fsnotify watcher and log file handle.
func (d *Daemon) Close() error {
	if d.Scheduler != nil {
		_ = d.Scheduler.Close()
	}
	if d.logCloser != nil {
		return d.logCloser.Close()
	}
	return nil
}

// AcquireLock takes the singleton daemon lock, honoring --lockpick.
func (d *Daemon) AcquireLock(lockpick bool) (*daemonlock.Lock, error) {
	return daemonlock.Acquire(d.Paths.LockFile, lockpick)
}
