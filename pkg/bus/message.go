// Package bus implements the queue directory protocol: the atomic
// file-based MPSC queue that rendezvous producers (AI CLI sessions) with
// the single scheduler that drains them in order.
package bus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MessageType distinguishes speech payloads from lifecycle control messages.
type MessageType string

const (
	TypeSpeech  MessageType = "speech"
	TypeControl MessageType = "control"
)

// PreAction is executed before a control message's PostAction.
type PreAction string

const (
	PreActionNone  PreAction = "none"
	PreActionDrain PreAction = "drain"
)

// PostAction is executed after a control message's PreAction completes.
type PostAction string

const (
	PostActionNone    PostAction = "none"
	PostActionRestart PostAction = "restart"
	PostActionStop    PostAction = "stop"
)

// Message is the persistent, on-disk form of one queue entry. Field names
// and JSON tags match the wire format in spec §3/§6 exactly; unknown fields
// are ignored on decode by the default encoding/json behavior, satisfying
// the forward-compatibility rule in §6 without extra code.
type Message struct {
	ID        string      `json:"id"`
	Timestamp float64     `json:"timestamp"`
	SessionID string      `json:"session_id"`
	Project   string      `json:"project"`
	Text      string      `json:"text"`
	Persona   string      `json:"persona"`
	Type      MessageType `json:"type"`

	PreAction  PreAction  `json:"pre_action,omitempty"`
	PostAction PostAction `json:"post_action,omitempty"`
}

// NewID returns a random, URL-safe opaque token suitable for Message.ID.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsControl reports whether m drives daemon lifecycle rather than speech.
func (m Message) IsControl() bool {
	return m.Type == TypeControl
}

// SpeakerKey identifies the logical speaker for transition detection —
// spec §4.5's "last_speaker = session_id:project".
func (m Message) SpeakerKey() string {
	return m.SessionID + ":" + m.Project
}

// fileName encodes timestamp_id so lexicographic filename order matches
// enqueue order across producers; messages with colliding timestamps are
// ordered by their random id, not by enqueue order (spec §3, §5 ordering
// guarantees).
func fileName(ts float64, id string) string {
	return fmt.Sprintf("%s_%s.json", strconv.FormatFloat(ts, 'f', 6, 64), id)
}
