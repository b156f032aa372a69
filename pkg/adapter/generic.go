package adapter

import (
	"fmt"
	"os"
)

// Generic is the extensibility hook spec §9 asks for: a fallback adapter
// for any CLI without a dedicated one, identifying sessions by the current
// working directory with "/" and "_" turned into "-" (not a hash) (original_source/src/ai_tts/core/session.py's
// get_session_id PWD fallback).
type Generic struct{}

func NewGeneric() *Generic { return &Generic{} }

func (g *Generic) Name() string { return "generic" }

func (g *Generic) DetectSession() string {
	pwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return transformPath(pwd)
}

func (g *Generic) ExtractText(event map[string]interface{}) (string, error) {
	text, _ := event["text"].(string)
	if text == "" {
		return "", fmt.Errorf("generic adapter: event has no \"text\" field")
	}
	return text, nil
}

func (g *Generic) IsAvailable() bool { return true }
