// Package playback implements the playback state store (spec.md §4.3) and
// the synthesis/playback driver (spec.md §4.4). State writers follow the
// read-modify-atomic-rename pattern from the teacher's managed_stream.go
// state handling, backed by github.com/google/renameio/v2.
package playback

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/renameio/v2"

	"github.com/voicebus/voicebusd/pkg/bus"
)

// State is the single playback-state file's contents (spec.md §3).
type State struct {
	Paused         bool          `json:"paused"`
	AudioPID       *int          `json:"audio_pid"`
	CurrentMessage *bus.Message  `json:"current_message"`
	UpdatedAt      float64       `json:"updated_at"`
}

// Store wraps the playback-state file at path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Read loads the current state fresh from disk. A missing file is not an
// error — it reads as the zero State, matching "created lazily" (spec.md §3).
func (s *Store) Read() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, nil
	}
	return st, nil
}

// Mutation, when applied to a read State, returns the mutated state.
// Mutations built with the clear* helpers below distinguish "leave field
// unchanged" from "clear to null" (spec.md §4.3).
type Mutation func(State) State

// Mutate reads, applies fn, stamps UpdatedAt, and atomically replaces the
// state file.
func (s *Store) Mutate(fn Mutation) error {
	st, err := s.Read()
	if err != nil {
		return err
	}
	st = fn(st)
	st.UpdatedAt = float64(time.Now().UnixNano()) / 1e9

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return renameio.WriteFile(s.path, data, 0o644)
}

// SetPaused is the pause/resume CLI's sole write.
func SetPaused(paused bool) Mutation {
	return func(st State) State {
		st.Paused = paused
		return st
	}
}

// SetAudioPID records the currently-playing subprocess PID.
func SetAudioPID(pid int) Mutation {
	return func(st State) State {
		st.AudioPID = &pid
		return st
	}
}

// ClearAudioPID nulls audio_pid once the child has exited.
func ClearAudioPID() Mutation {
	return func(st State) State {
		st.AudioPID = nil
		return st
	}
}

// SetCurrentMessage copies msg into current_message (crash-safe replay)
// before the queue file backing it is deleted.
func SetCurrentMessage(msg bus.Message) Mutation {
	return func(st State) State {
		m := msg
		st.CurrentMessage = &m
		return st
	}
}

// ClearCurrentMessage nulls current_message once playback completes.
func ClearCurrentMessage() Mutation {
	return func(st State) State {
		st.CurrentMessage = nil
		return st
	}
}
