// Package scheduler implements the daemon's single-threaded cooperative
// main loop (spec.md §4.5), the speaker-transition policy, and the
// control-message protocol (§4.6). Grounded on
// original_source/scripts/tts-daemon.py's daemon_loop.
package scheduler

import (
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/voicebus/voicebusd/internal/daemonlock"
	"github.com/voicebus/voicebusd/internal/obslog"
	"github.com/voicebus/voicebusd/internal/playback"
	"github.com/voicebus/voicebusd/pkg/bus"
	"github.com/voicebus/voicebusd/pkg/persona"
)

// ExitReason is why Run returned.
type ExitReason int

const (
	ExitShutdown ExitReason = iota
	ExitRestart
	ExitStop
)

// Scheduler owns the daemon's one cooperative loop: exactly one external
// subprocess (synth or player) active at a time, per spec.md §5.
type Scheduler struct {
	Queue         *bus.Queue
	Store         *playback.Store
	Driver        *playback.Driver
	Config        *persona.Config
	HeartbeatPath string
	Logger        obslog.Logger

	lastSpeaker    string
	firstIteration bool
	shutdown       chan struct{}
	watcher        *fsnotify.Watcher
}

// New wires a Scheduler. A nil logger defaults to a no-op logger. It also
// tries to watch Queue.Dir() with fsnotify so Run's idle wait wakes as soon
// as a producer enqueues a message, instead of only on the next poll tick
// (spec.md §4.5's idle_poll_ms timer remains the correctness fallback if the
// watch can't be established — see DESIGN.md).
func New(queue *bus.Queue, store *playback.Store, driver *playback.Driver, cfg *persona.Config, heartbeatPath string, logger obslog.Logger) *Scheduler {
	if logger == nil {
		logger = obslog.NoOpLogger{}
	}
	s := &Scheduler{
		Queue:          queue,
		Store:          store,
		Driver:         driver,
		Config:         cfg,
		HeartbeatPath:  heartbeatPath,
		Logger:         logger,
		firstIteration: true,
		shutdown:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify unavailable, falling back to idle-poll timer only", "error", err.Error())
		return s
	}
	if err := watcher.Add(queue.Dir()); err != nil {
		logger.Warn("fsnotify watch on queue dir failed, falling back to idle-poll timer only", "error", err.Error())
		watcher.Close()
		return s
	}
	s.watcher = watcher
	return s
}

// Close releases the fsnotify watcher, if one was established.
func (s *Scheduler) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// RequestShutdown sets the flag the loop observes at its next iteration
// boundary (spec.md §4.7: "signal handlers ... set a shutdown flag that the
// scheduler observes at loop top").
func (s *Scheduler) RequestShutdown() {
	select {
	case <-s.shutdown:
		// already closed
	default:
		close(s.shutdown)
	}
}

func (s *Scheduler) shuttingDown() bool {
	select {
	case <-s.shutdown:
		return true
	default:
		return false
	}
}

// Run executes the scheduler loop until shutdown is requested or a control
// message ends it, returning why it stopped.
func (s *Scheduler) Run() ExitReason {
	s.Logger.Info("scheduler starting")

	for {
		if s.shuttingDown() {
			s.announceShutdown()
			return ExitShutdown
		}

		outcome, sleep := s.iterate()
		switch outcome {
		case ControlRestart:
			return ExitRestart
		case ControlStop:
			return ExitStop
		}

		if sleep {
			s.idleWait(time.Duration(s.Config.Queue.IdlePollMs) * time.Millisecond)
		}
	}
}

// idleWait blocks for at most idle, returning early if fsnotify reports
// activity in the queue directory. With no watcher established it's a
// plain sleep — the idle-poll timer is the correctness fallback either way.
func (s *Scheduler) idleWait(idle time.Duration) {
	if s.watcher == nil {
		time.Sleep(idle)
		return
	}

	timer := time.NewTimer(idle)
	defer timer.Stop()

	select {
	case <-s.watcher.Events:
	case <-s.watcher.Errors:
	case <-timer.C:
	}
}

// iterate runs one scheduler-loop iteration (spec.md §4.5 steps 1-10) and
// reports any control-message outcome plus whether the loop should idle-sleep
// before the next iteration.
func (s *Scheduler) iterate() (ControlOutcome, bool) {
	now := time.Now()

	// 1. Refresh heartbeat.
	if err := daemonlock.WriteHeartbeat(s.HeartbeatPath, now); err != nil {
		s.Logger.Error("heartbeat write failed", "error", err.Error())
	}

	// 2. Evict stale.
	maxAge := time.Duration(s.Config.Queue.MaxAgeSeconds) * time.Second
	if removed, err := s.Queue.EvictStale(maxAge); err != nil {
		s.Logger.Error("evict stale failed", "error", err.Error())
	} else if removed > 0 {
		s.Logger.Info("evicted stale messages", "count", removed)
	}

	// 3. Enforce depth.
	if removed, err := s.Queue.EnforceDepth(s.Config.Queue.MaxDepth); err != nil {
		s.Logger.Error("enforce depth failed", "error", err.Error())
	} else if removed > 0 {
		s.Logger.Warn("queue overflow, dropped oldest", "count", removed)
	}

	if s.firstIteration {
		s.firstIteration = false
		s.announceStartup()
	}

	// 4. If paused, sleep one poll interval and continue.
	st, err := s.Store.Read()
	if err != nil {
		s.Logger.Error("state read failed", "error", err.Error())
	}
	if st.Paused {
		return ControlContinue, true
	}

	// 5. Replay interrupted.
	if st.CurrentMessage != nil {
		s.play(*st.CurrentMessage)
		return ControlContinue, false
	}

	// 6. Dequeue.
	entries, err := s.Queue.List()
	if err != nil {
		s.Logger.Error("queue list failed", "error", err.Error())
		return ControlContinue, true
	}
	if len(entries) == 0 {
		return ControlContinue, true
	}
	entry := entries[0]

	// 7. Control message dispatch.
	if entry.Message.IsControl() {
		return s.dispatchControl(entry), false
	}

	// 8-10. Render, transition cue, play.
	s.deliver(entry)
	return ControlContinue, false
}

// deliver renders the oldest speech message, plays any speaker-transition
// cue, copies it into current_message for crash-safe replay, deletes its
// queue file, then plays it (spec.md §4.5 steps 8-10).
func (s *Scheduler) deliver(entry bus.Entry) {
	msg := entry.Message
	if msg.Text == "" {
		s.Logger.Warn("empty message, skipping", "project", msg.Project)
		_ = s.Queue.Delete(entry)
		return
	}

	active := s.Config.Resolve(msg.SessionID, msg.Project, msg.Persona)
	speed := active.Speed

	wavPath, err := s.Driver.Synthesize(msg.Text, active, speed)
	if err != nil {
		s.Logger.Error("synthesis failed", "project", msg.Project, "error", err.Error())
		_ = s.Queue.Delete(entry)
		return
	}

	speakerKey := msg.SpeakerKey()
	if s.lastSpeaker != "" && s.lastSpeaker != speakerKey {
		playTransitionCue(s.Driver, s.Config.Queue.SpeakerTransition, msg.Project, active, speed, s.Logger)
	}
	s.lastSpeaker = speakerKey

	if err := s.Store.Mutate(playback.SetCurrentMessage(msg)); err != nil {
		s.Logger.Error("state write failed", "error", err.Error())
	}
	_ = s.Queue.Delete(entry)

	s.playRendered(wavPath, active, speed)
}

// play re-synthesizes and plays an interrupted in-flight message (spec.md
// §4.5 step 5) — its queue file is already gone, so only Synthesize+Play run.
func (s *Scheduler) play(msg bus.Message) {
	active := s.Config.Resolve(msg.SessionID, msg.Project, msg.Persona)
	speed := active.Speed

	wavPath, err := s.Driver.Synthesize(msg.Text, active, speed)
	if err != nil {
		s.Logger.Error("replay synthesis failed", "error", err.Error())
		_ = s.Store.Mutate(playback.ClearCurrentMessage())
		return
	}
	s.playRendered(wavPath, active, speed)
}

func (s *Scheduler) playRendered(wavPath string, active persona.Persona, speed float64) {
	defer os.Remove(wavPath)

	result := s.Driver.Play(wavPath, active, speed, 1.0)
	switch result {
	case playback.Completed, playback.Failed:
		_ = s.Store.Mutate(playback.ClearCurrentMessage())
	case playback.Interrupted:
		// current_message stays set; step 5 picks it up next iteration.
	}
}

func (s *Scheduler) announceStartup() {
	s.announce("voice daemon online")
}

func (s *Scheduler) announceShutdown() {
	if err := daemonlock.RemoveHeartbeat(s.HeartbeatPath); err != nil {
		s.Logger.Error("heartbeat removal failed", "error", err.Error())
	}
	s.announce("voice daemon shutting down")
}

// announce speaks a lifecycle notice inline with the default persona. These
// are not queue messages: they cost no queue slot and are skipped silently
// on synthesis failure (spec.md §4.5).
func (s *Scheduler) announce(text string) {
	active := s.Config.Resolve("", "", s.Config.ActivePersona)
	result := s.Driver.RenderAndPlay(text, active, active.Speed)
	if result == playback.Failed {
		s.Logger.Warn("lifecycle announcement failed, skipping", "text", text)
	}
}
