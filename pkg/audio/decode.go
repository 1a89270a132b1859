package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// ErrDecode is returned when a payload cannot be decoded as any supported
// audio container.
var ErrDecode = errors.New("audio: cannot decode clip")

// ErrEmptyClip is returned for payloads that decode to zero samples, or for
// empty payloads.
var ErrEmptyClip = errors.New("audio: empty clip")

// Decode sniffs the container format of data (WAV or MP3), decodes it, and
// normalizes the result to mono PCM at [SampleRate].
func Decode(data []byte) (Clip, error) {
	if len(data) == 0 {
		return Clip{}, ErrEmptyClip
	}
	switch {
	case isWAV(data):
		return DecodeWAV(data)
	case isMP3(data):
		return DecodeMP3(data)
	default:
		return Clip{}, fmt.Errorf("%w: unrecognized container", ErrDecode)
	}
}

// DecodeWAV decodes a RIFF/WAVE payload and normalizes it to mono PCM at
// [SampleRate]. 8, 16, 24 and 32 bit PCM sources are accepted; stereo is
// downmixed.
func DecodeWAV(data []byte) (Clip, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return Clip{}, fmt.Errorf("%w: invalid wav header", ErrDecode)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("%w: read wav: %v", ErrDecode, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return Clip{}, ErrEmptyClip
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		switch depth {
		case 8:
			// 8-bit wav is unsigned.
			samples[i] = int16((s - 128) << 8)
		case 16:
			samples[i] = int16(s)
		case 24:
			samples[i] = int16(s >> 8)
		case 32:
			samples[i] = int16(s >> 16)
		default:
			return Clip{}, fmt.Errorf("%w: unsupported bit depth %d", ErrDecode, depth)
		}
	}

	switch buf.Format.NumChannels {
	case 1:
	case 2:
		samples = DownmixStereo(samples)
	default:
		return Clip{}, fmt.Errorf("%w: unsupported channel count %d", ErrDecode, buf.Format.NumChannels)
	}

	samples = Resample(samples, buf.Format.SampleRate, SampleRate)
	if len(samples) == 0 {
		return Clip{}, ErrEmptyClip
	}
	return Clip{Samples: samples, Rate: SampleRate}, nil
}

// DecodeMP3 decodes an MP3 payload and normalizes it to mono PCM at
// [SampleRate]. The mp3 decoder always emits 16-bit interleaved stereo.
func DecodeMP3(data []byte) (Clip, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return Clip{}, fmt.Errorf("%w: read mp3: %v", ErrDecode, err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return Clip{}, fmt.Errorf("%w: decode mp3 frames: %v", ErrDecode, err)
	}

	// 16-bit little-endian stereo, 4 bytes per frame.
	frames := len(pcm) / 4
	if frames == 0 {
		return Clip{}, ErrEmptyClip
	}
	stereo := make([]int16, frames*2)
	for i := range stereo {
		stereo[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	samples := DownmixStereo(stereo)
	samples = Resample(samples, dec.SampleRate(), SampleRate)
	if len(samples) == 0 {
		return Clip{}, ErrEmptyClip
	}
	return Clip{Samples: samples, Rate: SampleRate}, nil
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")) {
		return true
	}
	// Frame sync: 11 set bits at the start of the first MPEG audio frame.
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}
