// Package wav encodes PCM samples as RIFF/WAVE files, adapted from
// pkg/audio/wav.go, and generates the short sine-wave chime used for
// speaker transitions (spec.md §4.6).
package wav

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
)

const (
	bitsPerSample = 16
	channels      = 1
)

// Encode wraps 16-bit mono PCM samples in a RIFF/WAVE header.
func Encode(pcm []byte, sampleRate int) []byte {
	buf := new(bytes.Buffer)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*bitsPerSample/8))
	binary.Write(buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// WriteFile encodes pcm and writes it to path.
func WriteFile(path string, pcm []byte, sampleRate int) error {
	return os.WriteFile(path, Encode(pcm, sampleRate), 0o644)
}

// Tone generates a mono 16-bit PCM sine wave at freqHz for dur seconds, with
// a short linear fade-in/out to avoid a click. Used as the speaker-transition
// chime; no custom transition sound can be configured.
func Tone(freqHz float64, dur float64, sampleRate int) []byte {
	n := int(dur * float64(sampleRate))
	fade := n / 10
	if fade == 0 {
		fade = 1
	}
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		amp := 0.4
		switch {
		case i < fade:
			amp *= float64(i) / float64(fade)
		case i > n-fade:
			amp *= float64(n-i) / float64(fade)
		}
		sample := amp * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(sample*math.MaxInt16)))
	}
	return pcm
}
