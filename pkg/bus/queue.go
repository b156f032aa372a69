package bus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// Logger is the minimal leveled-logging capability bus needs. Satisfied by
// internal/obslog.Logger; kept narrow here so this package has no
// dependency on the logging implementation.
type Logger interface {
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// Queue is the rendezvous directory for one user's message bus.
type Queue struct {
	dir    string
	logger Logger
}

// New returns a Queue rooted at dir, creating it if necessary.
func New(dir string, logger Logger) (*Queue, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bus: create queue dir: %w", err)
	}
	return &Queue{dir: dir, logger: logger}, nil
}

// Dir returns the queue directory path.
func (q *Queue) Dir() string { return q.dir }

// Enqueue writes msg to a temp file and atomically renames it into place
// (spec §4.1, §4.8). The filename encodes timestamp_id so listings sort in
// enqueue order even across concurrent producers.
func (q *Queue) Enqueue(msg Message) error {
	if msg.ID == "" {
		msg.ID = NewID()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = float64(time.Now().UnixNano()) / 1e9
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal message: %v", ErrEnqueueFailed, err)
	}

	path := filepath.Join(q.dir, fileName(msg.Timestamp, msg.ID))
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}
	return nil
}

// Entry pairs a decoded Message with the file it was read from, so callers
// can delete or evict it without re-deriving the filename.
type Entry struct {
	Message Message
	Path    string
}

// List enumerates *.json queue files, parses each, and returns them sorted
// ascending by in-file timestamp (falling back to filename on ties — spec
// §4.1, §5). Files with invalid JSON are removed silently; corruption must
// never stall the bus.
func (q *Queue) List() ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(q.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("bus: list queue dir: %w", err)
	}

	entries := make([]Entry, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			// Vanished between Glob and ReadFile (raced with a delete
			// elsewhere) — not corruption, just skip it.
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			q.logger.Warn("bus: dropping corrupt queue file", "path", path, "error", err.Error())
			_ = os.Remove(path)
			continue
		}

		entries = append(entries, Entry{Message: msg, Path: path})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Message.Timestamp != entries[j].Message.Timestamp {
			return entries[i].Message.Timestamp < entries[j].Message.Timestamp
		}
		return filepath.Base(entries[i].Path) < filepath.Base(entries[j].Path)
	})

	return entries, nil
}

// Delete removes the queue file backing entry. Deleting an already-gone
// file is not an error — the scheduler may race with an evictor.
func (q *Queue) Delete(entry Entry) error {
	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("bus: delete %s: %w", entry.Path, err)
	}
	return nil
}

// EvictStale removes messages older than maxAge and returns how many were
// removed (spec §4.5 step 2, §8 eviction correctness).
func (q *Queue) EvictStale(maxAge time.Duration) (int, error) {
	entries, err := q.List()
	if err != nil {
		return 0, err
	}

	cutoff := float64(time.Now().Add(-maxAge).UnixNano()) / 1e9
	removed := 0
	for _, e := range entries {
		if e.Message.Timestamp < cutoff {
			if err := q.Delete(e); err != nil {
				q.logger.Error("bus: evict stale message failed", "path", e.Path, "error", err.Error())
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// EnforceDepth deletes the oldest entries until at most maxDepth remain
// (spec §3 drop-head policy, §8 depth bound).
func (q *Queue) EnforceDepth(maxDepth int) (int, error) {
	entries, err := q.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for len(entries) > maxDepth {
		oldest := entries[0]
		if err := q.Delete(oldest); err != nil {
			q.logger.Error("bus: enforce depth delete failed", "path", oldest.Path, "error", err.Error())
		} else {
			removed++
		}
		entries = entries[1:]
	}
	return removed, nil
}

// Depth returns the current number of queue files, for status reporting.
func (q *Queue) Depth() (int, error) {
	entries, err := q.List()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Previews returns up to n (project, first-40-chars-of-text) pairs for the
// oldest pending messages, for `daemon status` (spec §4.7).
func (q *Queue) Previews(n int) ([]string, error) {
	entries, err := q.List()
	if err != nil {
		return nil, err
	}
	if len(entries) > n {
		entries = entries[:n]
	}

	previews := make([]string, 0, len(entries))
	for _, e := range entries {
		text := e.Message.Text
		if runes := []rune(text); len(runes) > 40 {
			text = string(runes[:40])
		}
		previews = append(previews, fmt.Sprintf("%s: %s", e.Message.Project, strings.TrimSpace(text)))
	}
	return previews, nil
}
