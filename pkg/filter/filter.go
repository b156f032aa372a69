// Package filter strips markdown, code, URLs, and other elements that
// don't translate well to speech, before text reaches the synthesis engine.
// Ported from original_source/src/ai_tts/core/filters.py's
// filter_text_for_speech, same transformation order.
package filter

import (
	"regexp"
	"strings"
)

var (
	fencedCode    = regexp.MustCompile("(?s)```.*?```")
	inlineCode    = regexp.MustCompile("`[^`]+`")
	markdownLink  = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	bareURL       = regexp.MustCompile(`https?://\S+`)
	emptyBullet   = regexp.MustCompile(`(?m)^\s*[-*]\s*$`)
	header        = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	bold          = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italic        = regexp.MustCompile(`\*([^*]+)\*`)
	boldUnderline = regexp.MustCompile(`__([^_]+)__`)
	italicUnder   = regexp.MustCompile(`_([^_]+)_`)
	hr            = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	htmlTag       = regexp.MustCompile(`<[^>]+>`)
	tripleNewline = regexp.MustCompile(`\n{3,}`)
	doubleSpace   = regexp.MustCompile(` {2,}`)

	// emoji covers the same curated ranges as the original — emoticons,
	// symbols & pictographs, transport & map, flags, dingbats, and
	// supplemental symbols. Kept deliberately narrow: some TTS engines
	// handle emoji fine, so this only strips the ranges known to read
	// poorly aloud.
	emoji = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2702}-\x{27B0}\x{1F900}-\x{1F9FF}]+`)
)

// ForSpeech filters text for TTS consumption, in the same order as the
// Python original: code first, then links/URLs, then markdown structure,
// then HTML, then emoji, then whitespace collapse.
func ForSpeech(text string) string {
	text = fencedCode.ReplaceAllString(text, "")
	text = inlineCode.ReplaceAllString(text, "")

	text = markdownLink.ReplaceAllString(text, "$1")
	text = bareURL.ReplaceAllString(text, "")
	text = emptyBullet.ReplaceAllString(text, "")

	text = header.ReplaceAllString(text, "")

	text = bold.ReplaceAllString(text, "$1")
	text = italic.ReplaceAllString(text, "$1")
	text = boldUnderline.ReplaceAllString(text, "$1")
	text = italicUnder.ReplaceAllString(text, "$1")

	text = hr.ReplaceAllString(text, "")
	text = htmlTag.ReplaceAllString(text, "")
	text = emoji.ReplaceAllString(text, "")

	text = tripleNewline.ReplaceAllString(text, "\n\n")
	text = doubleSpace.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
