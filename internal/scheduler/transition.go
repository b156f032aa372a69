package scheduler

import (
	"fmt"
	"os"
	"time"

	"github.com/voicebus/voicebusd/internal/obslog"
	"github.com/voicebus/voicebusd/internal/playback"
	"github.com/voicebus/voicebusd/pkg/persona"
	"github.com/voicebus/voicebusd/pkg/wav"
)

// chimeVolume is the reduced playback level for the transition chime
// (original_source/scripts/tts-daemon.py's play_chime: "afplay -v 0.3").
const chimeVolume = 0.3

// chimeFreqHz/chimeDurSeconds pick a short, unobtrusive tone; the chime is
// always this synthesized tone (pkg/wav.Tone), never a system sound file.
const (
	chimeFreqHz     = 880.0
	chimeDurSeconds = 0.12
	chimeSampleRate = 22050
)

// postChimePause/postAnnouncePause are the brief silence after a transition cue before the main
// message starts, matching original_source's time.sleep(0.2)/(0.3).
const (
	postChimePause    = 200 * time.Millisecond
	postAnnouncePause = 300 * time.Millisecond
)

// playTransitionCue plays a speaker-change cue ahead of msg, according to
// policy. It runs after the main message has already been synthesized
// (spec.md §4.5: "played after synthesis of the main message has completed,
// to minimize silence between the cue and the speech").
func playTransitionCue(driver *playback.Driver, policy persona.SpeakerTransition, project string, active persona.Persona, speed float64, logger obslog.Logger) {
	switch policy {
	case persona.TransitionNone:
		return
	case persona.TransitionChime:
		playChime(driver, logger)
		time.Sleep(postChimePause)
	case persona.TransitionAnnounce:
		playAnnounce(driver, project, active, speed, logger)
		time.Sleep(postAnnouncePause)
	}
}

func playChime(driver *playback.Driver, logger obslog.Logger) {
	path, err := writeChimeTone()
	if err != nil {
		logger.Warn("chime tone generation failed", "error", err.Error())
		return
	}
	defer os.Remove(path)

	driver.Play(path, persona.Persona{}, 1.0, chimeVolume)
}

func writeChimeTone() (string, error) {
	path, err := scratchPath("voicebusd-chime")
	if err != nil {
		return "", err
	}
	pcm := wav.Tone(chimeFreqHz, chimeDurSeconds, chimeSampleRate)
	if err := wav.WriteFile(path, pcm, chimeSampleRate); err != nil {
		return "", err
	}
	return path, nil
}

func playAnnounce(driver *playback.Driver, project string, active persona.Persona, speed float64, logger obslog.Logger) {
	text := fmt.Sprintf("%s says:", project)
	wavPath, err := driver.Synthesize(text, active, speed)
	if err != nil {
		logger.Warn("announce synthesis failed", "error", err.Error())
		return
	}
	defer os.Remove(wavPath)

	driver.Play(wavPath, active, speed, 1.0)
}

func scratchPath(prefix string) (string, error) {
	f, err := os.CreateTemp("", prefix+"-*.wav")
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()
	return path, nil
}
