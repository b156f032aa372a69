package playback

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/voicebus/voicebusd/internal/obslog"
	"github.com/voicebus/voicebusd/pkg/persona"
)

// Result is render_and_play's outcome (spec.md §4.4).
type Result int

const (
	Completed Result = iota
	Interrupted
	Failed
)

func (r Result) String() string {
	switch r {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	default:
		return "failed"
	}
}

// ErrSynthesisFailed is returned when the synthesis binary is missing or
// exits non-zero (spec.md §4.4 step 2).
var ErrSynthesisFailed = fmt.Errorf("playback: synthesis failed")

// ErrVoiceNotFound is returned when neither the requested persona's voice
// model nor the default persona's voice model exists on disk (spec.md §7's
// "Structural" error row: fall back to the default persona's voice, drop
// with ERROR only if that default is also missing). Grounded on
// original_source/scripts/tts-daemon.py's generate_speech.
var ErrVoiceNotFound = fmt.Errorf("playback: voice model not found")

// pollInterval is the pause-detection cadence (spec.md §4.4: "design point,
// responsive without burning CPU").
const pollInterval = 50 * time.Millisecond

// Driver renders text through an external synthesis binary and plays the
// result, polling a Store for the pause flag so speech can be interrupted
// mid-play (spec.md §4.4). Grounded on the teacher's subprocess-management
// style in pkg/orchestrator/managed_stream.go.
type Driver struct {
	SynthBinary string
	VoicesDir   string
	Store       *Store
	Logger      obslog.Logger

	// PlayerOverride substitutes the platform audio player command when set,
	// so tests can drive Play's pause/poll/terminate logic against a
	// controllable process instead of afplay/paplay/aplay.
	PlayerOverride func(wavPath string, p persona.Persona, speed, volume float64) *exec.Cmd
}

// NewDriver wires synthBinary (e.g. "piper") and voicesDir against store.
// A nil logger defaults to a no-op logger.
func NewDriver(synthBinary, voicesDir string, store *Store, logger obslog.Logger) *Driver {
	if logger == nil {
		logger = obslog.NoOpLogger{}
	}
	return &Driver{SynthBinary: synthBinary, VoicesDir: voicesDir, Store: store, Logger: logger}
}

// RenderAndPlay synthesizes text with p's voice at speed and plays it,
// polling Store for the pause flag every pollInterval. When Store is nil
// (direct mode, spec.md §4.8 step 3) no polling happens and pause is
// impossible — direct mode always runs to completion or failure.
func (d *Driver) RenderAndPlay(text string, p persona.Persona, speed float64) Result {
	wavPath, err := d.Synthesize(text, p, speed)
	if err != nil {
		d.Logger.Error("synthesis failed", "error", err)
		return Failed
	}
	defer os.Remove(wavPath)

	return d.Play(wavPath, p, speed, 1.0)
}

// Synthesize renders text with p's voice at speed to a scratch WAV file
// under the OS temp directory and returns its path. The caller owns
// removing it. Split out from RenderAndPlay so the scheduler can render the
// main message before deciding on a speaker-transition cue (spec.md §4.5:
// "render audio first, then decide speaker-transition cue, then play").
func (d *Driver) Synthesize(text string, p persona.Persona, speed float64) (string, error) {
	wavPath := filepath.Join(os.TempDir(), "voicebusd-"+uuid.NewString()+".wav")

	voicePath, err := d.resolveVoice(p.Voice)
	if err != nil {
		return "", err
	}

	args := []string{"--model", voicePath, "--output_file", wavPath}
	if p.Speaker != nil {
		args = append(args, "--speaker", strconv.Itoa(*p.Speaker))
	}
	if p.SpeedMethod == persona.SpeedMethodLengthScale && speed > 0 {
		args = append(args, "--length-scale", strconv.FormatFloat(1/speed, 'f', 4, 64))
	}

	cmd := exec.Command(d.SynthBinary, args...)
	cmd.Stdin = bytes.NewBufferString(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s: %s", ErrSynthesisFailed, d.SynthBinary, stderr.String())
	}
	return wavPath, nil
}

// resolveVoice returns the on-disk path to voice's model file, falling back
// to the default persona's voice if it's missing, and failing only if that
// default is also missing (spec.md §7 "Structural" row; same two-tier
// fallback as generate_speech in original_source/scripts/tts-daemon.py).
func (d *Driver) resolveVoice(voice string) (string, error) {
	path := filepath.Join(d.VoicesDir, voice+".onnx")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	d.Logger.Warn("voice file not found, falling back to default", "voice", voice)
	fallbackPath := filepath.Join(d.VoicesDir, persona.DefaultVoice+".onnx")
	if _, err := os.Stat(fallbackPath); err == nil {
		return fallbackPath, nil
	}

	return "", fmt.Errorf("%w: %s and default %s", ErrVoiceNotFound, path, fallbackPath)
}

// Play plays an already-rendered WAV file, polling Store for the pause flag
// every pollInterval. volume scales playback loudness where the platform
// player supports it (afplay's -v; used for the reduced-volume transition
// chime, spec.md §4.5) and is ignored elsewhere.
func (d *Driver) Play(wavPath string, p persona.Persona, speed, volume float64) Result {
	cmd := d.buildPlayerCommand(wavPath, p, speed, volume)
	if err := cmd.Start(); err != nil {
		d.Logger.Error("audio player start failed", "error", err)
		return Failed
	}

	if d.Store != nil {
		pid := cmd.Process.Pid
		_ = d.Store.Mutate(SetAudioPID(pid))
		defer func() { _ = d.Store.Mutate(ClearAudioPID()) }()
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			if err != nil {
				return Failed
			}
			return Completed
		case <-ticker.C:
			if d.Store == nil {
				continue
			}
			st, err := d.Store.Read()
			if err != nil || !st.Paused {
				continue
			}
			terminateGracefully(cmd)
			<-done
			return Interrupted
		}
	}
}

func terminateGracefully(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(os.Interrupt)
	timer := time.NewTimer(200 * time.Millisecond)
	defer timer.Stop()
	<-timer.C
	_ = cmd.Process.Kill()
}

func (d *Driver) buildPlayerCommand(wavPath string, p persona.Persona, speed, volume float64) *exec.Cmd {
	if d.PlayerOverride != nil {
		return d.PlayerOverride(wavPath, p, speed, volume)
	}
	return d.playerCommand(wavPath, p, speed, volume)
}

func (d *Driver) playerCommand(wavPath string, p persona.Persona, speed, volume float64) *exec.Cmd {
	if runtime.GOOS == "darwin" {
		args := []string{}
		if p.SpeedMethod == persona.SpeedMethodPlayback && speed > 0 {
			args = append(args, "-r", strconv.FormatFloat(speed, 'f', 4, 64))
		}
		if volume > 0 && volume < 1.0 {
			args = append(args, "-v", strconv.FormatFloat(volume, 'f', 2, 64))
		}
		args = append(args, wavPath)
		return exec.Command("afplay", args...)
	}

	player := "aplay"
	if _, err := exec.LookPath("paplay"); err == nil {
		player = "paplay"
	}
	// paplay/aplay don't support a speed flag; playback-method speed scaling
	// silently degrades to 1x on these platforms (spec.md §4.4 step 3).
	return exec.Command(player, wavPath)
}
