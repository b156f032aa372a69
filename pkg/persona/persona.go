// Package persona resolves named voice configurations and the per-session
// / per-project overrides layered on top of them, per spec §3 ("Persona
// config") and the hierarchy in original_source/src/ai_tts/core/session.go.
package persona

// SpeedMethod selects how a persona's speed multiplier is applied.
type SpeedMethod string

const (
	// SpeedMethodPlayback synthesizes at 1x then accelerates at the audio
	// player (pitch shifts up).
	SpeedMethodPlayback SpeedMethod = "playback"
	// SpeedMethodLengthScale tells the synthesizer to compress duration
	// directly (pitch preserved).
	SpeedMethodLengthScale SpeedMethod = "length_scale"
)

// Persona is a named voice configuration: model, speed, and how speed is
// achieved.
type Persona struct {
	Name        string      `json:"-"`
	Voice       string      `json:"voice"`
	Speed       float64     `json:"speed"`
	SpeedMethod SpeedMethod `json:"speed_method"`
	Speaker     *int        `json:"speaker,omitempty"`
}

// DefaultVoice and DefaultSpeed back a synthesized persona when neither the
// requested nor the configured default persona exists (spec §7 — "Fall back
// to default persona; if default also missing, drop message").
const (
	DefaultVoice = "en_US-lessac-medium"
	DefaultSpeed = 2.0
)

// Fallback returns a persona usable when name isn't registered.
func Fallback(name string) Persona {
	return Persona{
		Name:        name,
		Voice:       DefaultVoice,
		Speed:       DefaultSpeed,
		SpeedMethod: SpeedMethodPlayback,
	}
}
