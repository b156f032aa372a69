// Package adapter defines the per-CLI-tool capability spec §6 and §9
// describe: each AI CLI (Claude Code, Gemini, ...) knows its own session
// and transcript layout; the bus core only needs {DetectSession,
// ExtractText, IsAvailable}. Ported from
// original_source/src/ai_tts/adapters/{__init__,claude,gemini}.py.
package adapter

// Adapter is the capability a transcript adapter exposes to the Producer
// API. Implementations are a tagged variant over known CLIs plus the
// Generic fallback — spec §9's "dynamic discovery is not required."
type Adapter interface {
	// Name identifies the adapter, e.g. "claude", "gemini".
	Name() string

	// DetectSession derives a session ID from ambient process state (CWD,
	// environment, the CLI's own project-folder layout). Returns "" if no
	// session can be determined.
	DetectSession() string

	// ExtractText pulls the text to speak out of a tool-specific event
	// payload (e.g. a Stop-hook JSON blob naming a transcript file).
	ExtractText(event map[string]interface{}) (string, error)

	// IsAvailable reports whether the underlying CLI tool is installed.
	IsAvailable() bool
}

// Registry looks adapters up by name.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry returns a Registry pre-populated with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{adapters: map[string]Adapter{}}
	for _, a := range []Adapter{NewClaude(""), NewGemini(), NewGeneric()} {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an adapter under its own Name().
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Get returns the adapter registered under name, or the Generic fallback if
// name is unknown or empty.
func (r *Registry) Get(name string) Adapter {
	if a, ok := r.adapters[name]; ok {
		return a
	}
	return r.adapters["generic"]
}
