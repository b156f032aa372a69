package persona

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// SpeakerTransition selects how the scheduler announces a change in who is
// speaking (spec §4.5).
type SpeakerTransition string

const (
	TransitionChime    SpeakerTransition = "chime"
	TransitionAnnounce SpeakerTransition = "announce"
	TransitionNone     SpeakerTransition = "none"
)

// QueuePolicy holds the knobs spec §3/§6 groups under the config file's
// "queue" key.
type QueuePolicy struct {
	MaxDepth          int               `json:"max_depth"`
	MaxAgeSeconds     int               `json:"max_age_seconds"`
	SpeakerTransition SpeakerTransition `json:"speaker_transition"`
	CoalesceRapidMs   int               `json:"coalesce_rapid_ms"`
	IdlePollMs        int               `json:"idle_poll_ms"`
}

// DefaultQueuePolicy matches the defaults in spec §4.5.
func DefaultQueuePolicy() QueuePolicy {
	return QueuePolicy{
		MaxDepth:          20,
		MaxAgeSeconds:     300,
		SpeakerTransition: TransitionChime,
		CoalesceRapidMs:   500,
		IdlePollMs:        100,
	}
}

// SessionOverride is a per-session settings override
// (original_source/src/ai_tts/core/session.py's Session dataclass).
type SessionOverride struct {
	Muted   *bool    `json:"muted,omitempty"`
	Persona string   `json:"persona,omitempty"`
	Speed   *float64 `json:"speed,omitempty"`
}

// Config is the full persona config file (spec §3, §6).
type Config struct {
	ActivePersona   string                     `json:"active_persona"`
	Muted           bool                       `json:"muted"`
	Personas        map[string]Persona         `json:"personas"`
	Sessions        map[string]SessionOverride `json:"sessions,omitempty"`
	ProjectPersonas map[string]string          `json:"project_personas,omitempty"`
	Queue           QueuePolicy                `json:"queue"`

	path string
}

// Default returns a Config with spec defaults and no registered personas.
func Default() Config {
	return Config{
		ActivePersona: "default",
		Muted:         true,
		Personas:      map[string]Persona{},
		Sessions:      map[string]SessionOverride{},
		ProjectPersonas: map[string]string{},
		Queue:         DefaultQueuePolicy(),
	}
}

// Load reads the config file at path, returning defaults if it doesn't
// exist (original_source/src/ai_tts/core/config.py's Config.load).
func Load(path string) (Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("persona: read config: %w", err)
	}

	loaded := Default()
	if err := json.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("persona: parse config: %w", err)
	}
	loaded.path = path
	return loaded, nil
}

// Save atomically writes the config back to its source path.
func (c Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("persona: config has no backing path")
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("persona: marshal config: %w", err)
	}
	if err := renameio.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("persona: write config: %w", err)
	}
	return nil
}

// Resolve implements the session > project > global persona hierarchy from
// original_source/src/ai_tts/core/session.py's get_effective_persona,
// falling back to a synthesized Persona when the name isn't registered
// (spec §7 structural-error policy).
func (c Config) Resolve(sessionID, project, override string) Persona {
	name := override
	if name == "" {
		if s, ok := c.Sessions[sessionID]; ok && s.Persona != "" {
			name = s.Persona
		}
	}
	if name == "" {
		if p, ok := c.ProjectPersonas[project]; ok {
			name = p
		}
	}
	if name == "" {
		name = c.ActivePersona
	}

	if p, ok := c.Personas[name]; ok {
		p.Name = name
		return p
	}

	if c.ActivePersona != "" && c.ActivePersona != name {
		if p, ok := c.Personas[c.ActivePersona]; ok {
			p.Name = c.ActivePersona
			return p
		}
	}

	return Fallback(name)
}

// IsSessionMuted reports whether sessionID should be silenced, honoring a
// per-session override over the global mute flag.
func (c Config) IsSessionMuted(sessionID string) bool {
	if s, ok := c.Sessions[sessionID]; ok && s.Muted != nil {
		return *s.Muted
	}
	return c.Muted
}
