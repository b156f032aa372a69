package adapter

import (
	"fmt"
	"os"
)

// Gemini is a placeholder adapter for the Gemini CLI, ported from
// original_source/src/ai_tts/adapters/gemini.py. Gemini's CLI did not
// document a hook/transcript format at the time the original was written,
// so DetectSession falls back to "gemini-" plus the transformed working
// directory path (not a hash) and ExtractText reports that no
// extraction is possible yet — matching the Python TODOs exactly rather
// than inventing a format.
type Gemini struct{}

func NewGemini() *Gemini { return &Gemini{} }

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) DetectSession() string {
	pwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return "gemini-" + transformPath(pwd)
}

func (g *Gemini) ExtractText(event map[string]interface{}) (string, error) {
	path, _ := event["transcript_path"].(string)
	if path == "" {
		path, _ = event["conversation_path"].(string)
	}
	if path == "" {
		return "", fmt.Errorf("gemini adapter: event has no transcript reference")
	}
	return "", fmt.Errorf("gemini adapter: transcript format not yet documented upstream")
}

func (g *Gemini) IsAvailable() bool {
	_, err := lookPath("gemini")
	return err == nil
}
