// Package producer implements the Producer API (spec.md §4.8): the entry
// point every AI CLI adapter calls after extracting text to speak. Ported
// from original_source/src/ai_tts/core/speaker.py's speak/_speak_direct/
// _speak_queued.
package producer

import (
	"strings"
	"time"

	"github.com/voicebus/voicebusd/internal/daemonlock"
	"github.com/voicebus/voicebusd/internal/obslog"
	"github.com/voicebus/voicebusd/internal/playback"
	"github.com/voicebus/voicebusd/pkg/bus"
	"github.com/voicebus/voicebusd/pkg/filter"
	"github.com/voicebus/voicebusd/pkg/persona"
)

// Options carries the caller-supplied fields of spec.md §4.8's
// speak(text, *, session_id, persona, project) signature.
type Options struct {
	SessionID  string
	Persona    string
	Project    string
	Speed      float64 // 0 means "use persona default"
	SkipFilter bool
	Force      bool // speak even if session is muted
}

// Producer resolves persona/mute state against a shared Config, and either
// enqueues onto Queue or falls back to direct synthesis when the daemon
// appears dead.
type Producer struct {
	Config      *persona.Config
	Queue       *bus.Queue
	Heartbeat   string // path to daemon.heartbeat, for staleness checks
	DirectMode  bool   // force direct synthesis, bypassing the queue entirely
	Driver      *playback.Driver
	Logger      obslog.Logger
}

// New wires a Producer. A nil logger defaults to a no-op logger.
func New(cfg *persona.Config, queue *bus.Queue, heartbeatPath string, driver *playback.Driver, logger obslog.Logger) *Producer {
	if logger == nil {
		logger = obslog.NoOpLogger{}
	}
	return &Producer{Config: cfg, Queue: queue, Heartbeat: heartbeatPath, Driver: driver, Logger: logger}
}

// Speak filters text, checks mute, and either enqueues it for the scheduler
// or (direct/stale-daemon mode) synthesizes and plays it inline. Returns
// true if speech was played or queued, false if muted, empty, or failed.
func (p *Producer) Speak(text string, opts Options) bool {
	if !opts.Force && p.Config.IsSessionMuted(opts.SessionID) {
		return false
	}

	if !opts.SkipFilter {
		text = filter.ForSpeech(text)
	}
	if strings.TrimSpace(text) == "" {
		return false
	}

	active := p.Config.Resolve(opts.SessionID, opts.Project, opts.Persona)
	speed := opts.Speed
	if speed == 0 {
		speed = active.Speed
	}

	if p.DirectMode || daemonlock.IsStale(p.Heartbeat, time.Now()) {
		return p.speakDirect(text, active, speed)
	}
	return p.speakQueued(text, active, speed, opts.SessionID, opts.Project)
}

// speakDirect runs the same driver as the scheduler (spec.md §4.4) but with
// a nil Store, so there is no shared pause state to poll (spec.md §4.8
// step 3).
func (p *Producer) speakDirect(text string, active persona.Persona, speed float64) bool {
	direct := *p.Driver
	direct.Store = nil
	result := direct.RenderAndPlay(text, active, speed)
	if result == playback.Failed {
		p.Logger.Error("direct synthesis failed", "persona", active.Name)
		return false
	}
	return true
}

// speakQueued enqueues a speech message for the scheduler to play in order
// (spec.md §4.8 step 4).
func (p *Producer) speakQueued(text string, active persona.Persona, speed float64, sessionID, project string) bool {
	msg := bus.Message{
		SessionID: sessionID,
		Project:   project,
		Text:      text,
		Persona:   active.Name,
		Type:      bus.TypeSpeech,
	}
	if err := p.Queue.Enqueue(msg); err != nil {
		p.Logger.Error("enqueue failed", "error", err.Error())
		return false
	}
	return true
}
