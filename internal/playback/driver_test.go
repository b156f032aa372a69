package playback

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/voicebus/voicebusd/pkg/persona"
)

func TestSynthesizeFailsOnMissingBinary(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "playback.json"))
	// Provide the voice model so the failure comes from the missing binary,
	// not from voice resolution.
	voicesDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(voicesDir, persona.DefaultVoice+".onnx"), []byte("stub"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	d := NewDriver("/no/such/synth-binary", voicesDir, store, nil)

	result := d.RenderAndPlay("hello", persona.Fallback("default"), 1.0)
	if result != Failed {
		t.Fatalf("RenderAndPlay with missing synth binary = %v, want Failed", result)
	}
}

func TestResolveVoiceUsesRequestedVoiceWhenPresent(t *testing.T) {
	voicesDir := t.TempDir()
	wantPath := filepath.Join(voicesDir, "narrator.onnx")
	if err := os.WriteFile(wantPath, []byte("stub"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	d := NewDriver("/no/such/synth-binary", voicesDir, nil, nil)

	got, err := d.resolveVoice("narrator")
	if err != nil {
		t.Fatalf("resolveVoice: %v", err)
	}
	if got != wantPath {
		t.Fatalf("resolveVoice = %q, want %q", got, wantPath)
	}
}

func TestResolveVoiceFallsBackToDefaultWhenPersonaVoiceMissing(t *testing.T) {
	voicesDir := t.TempDir()
	defaultPath := filepath.Join(voicesDir, persona.DefaultVoice+".onnx")
	if err := os.WriteFile(defaultPath, []byte("stub"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	d := NewDriver("/no/such/synth-binary", voicesDir, nil, nil)

	got, err := d.resolveVoice("nonexistent-persona-voice")
	if err != nil {
		t.Fatalf("resolveVoice: %v", err)
	}
	if got != defaultPath {
		t.Fatalf("resolveVoice = %q, want default %q", got, defaultPath)
	}
}

func TestResolveVoiceFailsWhenDefaultAlsoMissing(t *testing.T) {
	d := NewDriver("/no/such/synth-binary", t.TempDir(), nil, nil)

	_, err := d.resolveVoice("nonexistent-persona-voice")
	if !errors.Is(err, ErrVoiceNotFound) {
		t.Fatalf("resolveVoice error = %v, want ErrVoiceNotFound", err)
	}
}

func TestResultString(t *testing.T) {
	cases := map[Result]string{Completed: "completed", Interrupted: "interrupted", Failed: "failed"}
	for r, want := range cases {
		if got := r.String(); got != want {
			t.Fatalf("Result(%d).String() = %q, want %q", r, got, want)
		}
	}
}
