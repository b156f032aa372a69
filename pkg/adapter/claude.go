package adapter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Claude adapts the Claude Code CLI: session IDs come from its
// ~/.claude/projects/<transformed-pwd> folder layout, and transcripts are
// JSONL. Ported from
// original_source/src/ai_tts/adapters/claude.py.
type Claude struct {
	projectsDir string
}

// NewClaude returns a Claude adapter rooted at projectsDir, defaulting to
// ~/.claude/projects when projectsDir is empty.
func NewClaude(projectsDir string) *Claude {
	if projectsDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			projectsDir = filepath.Join(home, ".claude", "projects")
		}
	}
	return &Claude{projectsDir: projectsDir}
}

func (c *Claude) Name() string { return "claude" }

// DetectSession transforms the current working directory into Claude
// Code's folder-naming scheme (/ and _ both become -) and returns the
// longest registered project folder that is a prefix of it.
func (c *Claude) DetectSession() string {
	pwd, err := os.Getwd()
	if err != nil || c.projectsDir == "" {
		return ""
	}
	transformed := transformPath(pwd)

	entries, err := os.ReadDir(c.projectsDir)
	if err != nil {
		return ""
	}

	best := ""
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(transformed, name) && len(name) > len(best) {
			best = name
		}
	}
	return best
}

func transformPath(pwd string) string {
	replacer := strings.NewReplacer("/", "-", "_", "-")
	return replacer.Replace(pwd)
}

// claudeTranscriptEntry is the subset of Claude Code's JSONL transcript
// format ExtractText needs.
type claudeTranscriptEntry struct {
	Type    string `json:"type"`
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ExtractText reads event["transcript_path"] (a JSONL file) and returns the
// last assistant message that carries text content, walking backward so
// tool-use-only turns are skipped.
func (c *Claude) ExtractText(event map[string]interface{}) (string, error) {
	transcriptPath, _ := event["transcript_path"].(string)
	if transcriptPath == "" {
		return "", fmt.Errorf("claude adapter: event has no transcript_path")
	}

	f, err := os.Open(transcriptPath)
	if err != nil {
		return "", fmt.Errorf("claude adapter: open transcript: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	for i := len(lines) - 1; i >= 0; i-- {
		var entry claudeTranscriptEntry
		if err := json.Unmarshal([]byte(lines[i]), &entry); err != nil {
			continue
		}
		if entry.Type != "message" || entry.Message.Role != "assistant" {
			continue
		}

		var asString string
		if err := json.Unmarshal(entry.Message.Content, &asString); err == nil {
			if asString != "" {
				return asString, nil
			}
			continue
		}

		var blocks []claudeContentBlock
		if err := json.Unmarshal(entry.Message.Content, &blocks); err != nil {
			continue
		}
		var parts []string
		for _, b := range blocks {
			if b.Type == "text" && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n"), nil
		}
	}

	return "", fmt.Errorf("claude adapter: no assistant text found in transcript")
}

// IsAvailable reports whether the claude binary is on PATH.
func (c *Claude) IsAvailable() bool {
	_, err := lookPath("claude")
	return err == nil
}
