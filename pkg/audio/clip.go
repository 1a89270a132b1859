// Package audio decodes recorded clips into the mono 16 kHz PCM buffer the
// scoring pipeline works on.
//
// Uploads arrive as WAV or MP3 files; Decode sniffs the container, decodes,
// downmixes to mono and resamples so every downstream consumer (HTTP
// transcription providers, the in-process whisper.cpp backend, duration math)
// sees one canonical format. EncodeWAV converts a clip back into a WAV file
// for providers that take file uploads.
package audio

import "math"

// SampleRate is the canonical pipeline sample rate in Hz. Every Clip
// produced by this package carries mono PCM at this rate.
const SampleRate = 16000

// Clip is a decoded audio recording: mono little-endian 16-bit PCM.
type Clip struct {
	// Samples is the mono PCM data.
	Samples []int16

	// Rate is the sample rate in Hz, SampleRate after Decode.
	Rate int
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.Rate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.Rate)
}

// Empty reports whether the clip contains no samples.
func (c Clip) Empty() bool {
	return len(c.Samples) == 0
}

// Float32 returns the samples scaled to [-1, 1] float32, the representation
// whisper.cpp consumes.
func (c Clip) Float32() []float32 {
	out := make([]float32, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = float32(s) / 32768
	}
	return out
}

// RMS returns the root mean square level of the clip in [0, 1]. Useful for
// logging suspiciously quiet uploads; silence is not an error (it degrades
// to an empty transcript downstream).
func (c Clip) RMS() float64 {
	if len(c.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range c.Samples {
		f := float64(s) / 32768
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(c.Samples)))
}
