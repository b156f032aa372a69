package filter

import "testing"

func TestForSpeech(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"fenced code removed", "before\n```go\nfmt.Println(1)\n```\nafter", "before\n\nafter"},
		{"inline code removed", "run `go test` now", "run now"},
		{"markdown link keeps text", "see [the docs](https://example.com/x)", "see the docs"},
		{"bare url removed", "visit https://example.com/page for info", "visit for info"},
		{"header stripped", "# Title\nbody", "Title\nbody"},
		{"bold stripped", "this is **important**", "this is important"},
		{"italic stripped", "this is *subtle*", "this is subtle"},
		{"html tag stripped", "a <b>bold</b> word", "a bold word"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ForSpeech(tc.in); got != tc.want {
				t.Errorf("ForSpeech(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestForSpeechCollapsesWhitespace(t *testing.T) {
	in := "line one\n\n\n\nline two   with   spaces"
	want := "line one\n\nline two with spaces"
	if got := ForSpeech(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
