package adapter

import "testing"

func TestRegistryFallsBackToGeneric(t *testing.T) {
	r := NewRegistry()
	got := r.Get("nonexistent-cli")
	if got.Name() != "generic" {
		t.Fatalf("Get(unknown) = %q, want generic", got.Name())
	}
}

func TestRegistryGetKnownAdapter(t *testing.T) {
	r := NewRegistry()
	got := r.Get("claude")
	if got.Name() != "claude" {
		t.Fatalf("Get(claude) = %q, want claude", got.Name())
	}
}

func TestGenericDetectSessionNonEmpty(t *testing.T) {
	g := NewGeneric()
	if g.DetectSession() == "" {
		t.Fatal("DetectSession() = \"\", want non-empty PWD-derived session id")
	}
}

func TestGenericExtractTextRequiresTextField(t *testing.T) {
	g := NewGeneric()
	if _, err := g.ExtractText(map[string]interface{}{}); err == nil {
		t.Fatal("ExtractText(empty event) = nil error, want error")
	}
	text, err := g.ExtractText(map[string]interface{}{"text": "hello"})
	if err != nil || text != "hello" {
		t.Fatalf("ExtractText = (%q, %v), want (\"hello\", nil)", text, err)
	}
}

func TestGenericIsAvailableAlwaysTrue(t *testing.T) {
	if !NewGeneric().IsAvailable() {
		t.Fatal("Generic.IsAvailable() = false, want true")
	}
}
