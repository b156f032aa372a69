package producer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/voicebus/voicebusd/internal/daemonlock"
	"github.com/voicebus/voicebusd/internal/playback"
	"github.com/voicebus/voicebusd/pkg/bus"
	"github.com/voicebus/voicebusd/pkg/persona"
)

func newTestProducer(t *testing.T) (*Producer, *bus.Queue, string) {
	t.Helper()
	dir := t.TempDir()

	q, err := bus.New(filepath.Join(dir, "queue"), nil)
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}

	cfg := persona.Default()
	cfg.Muted = false // tests exercise queueing/filtering, not the mute gate itself
	heartbeatPath := filepath.Join(dir, "daemon.heartbeat")
	if err := daemonlock.WriteHeartbeat(heartbeatPath, time.Now()); err != nil {
		t.Fatalf("WriteHeartbeat: %v", err)
	}

	store := playback.NewStore(filepath.Join(dir, "playback.json"))
	driver := playback.NewDriver("/no/such/synth-binary", dir, store, nil)

	return New(&cfg, q, heartbeatPath, driver, nil), q, heartbeatPath
}

func TestSpeakMutedSessionReturnsFalse(t *testing.T) {
	p, _, _ := newTestProducer(t)
	p.Config.Sessions = map[string]persona.SessionOverride{
		"sess-1": {Muted: boolPtr(true)},
	}

	if p.Speak("hello there", Options{SessionID: "sess-1"}) {
		t.Fatal("Speak on muted session = true, want false")
	}
}

func TestSpeakMutedSessionForced(t *testing.T) {
	p, q, _ := newTestProducer(t)
	p.Config.Sessions = map[string]persona.SessionOverride{
		"sess-1": {Muted: boolPtr(true)},
	}

	if !p.Speak("hello there", Options{SessionID: "sess-1", Force: true}) {
		t.Fatal("Speak with Force=true on muted session = false, want true (enqueued)")
	}

	entries, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("queue depth = %d, want 1", len(entries))
	}
}

func TestSpeakEmptyAfterFilterReturnsFalse(t *testing.T) {
	p, _, _ := newTestProducer(t)
	if p.Speak("```\ncode only\n```", Options{SessionID: "sess-1"}) {
		t.Fatal("Speak with all-code text = true, want false (nothing left to say)")
	}
}

func TestSpeakQueuesWhenHeartbeatFresh(t *testing.T) {
	p, q, _ := newTestProducer(t)

	if !p.Speak("hello world", Options{SessionID: "sess-1", Project: "proj"}) {
		t.Fatal("Speak() = false, want true")
	}

	entries, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("queue depth = %d, want 1", len(entries))
	}
	if entries[0].Message.Project != "proj" {
		t.Fatalf("queued message project = %q, want %q", entries[0].Message.Project, "proj")
	}
}

func TestSpeakGoesDirectWhenHeartbeatStale(t *testing.T) {
	p, q, heartbeatPath := newTestProducer(t)
	if err := daemonlock.WriteHeartbeat(heartbeatPath, time.Now().Add(-1*time.Hour)); err != nil {
		t.Fatalf("WriteHeartbeat: %v", err)
	}

	p.Speak("hello world", Options{SessionID: "sess-1"})

	entries, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("queue depth = %d, want 0 (direct mode should bypass the queue)", len(entries))
	}
}

func boolPtr(b bool) *bool { return &b }
