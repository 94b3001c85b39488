package audio

import "time"

const (
	// CaptureSampleRate is the rate microphone audio is captured and sent
	// upstream at.
	CaptureSampleRate = 16000
	// PlaybackSampleRate is the rate synthesized speech arrives at.
	PlaybackSampleRate = 24000

	// CaptureChunkDuration is the fixed duration of one encoded capture
	// chunk.
	CaptureChunkDuration = 100 * time.Millisecond
	// CaptureChunkFrames is CaptureChunkDuration worth of frames at
	// CaptureSampleRate.
	CaptureChunkFrames = 1600
)

// MimeType strings for the session wire protocol.
const (
	CaptureMimeType = "audio/pcm;rate=16000"
	JPEGMimeType    = "image/jpeg"
)

type encodingFormat string

const (
	EncodingLinear16 encodingFormat = "linear16"
	EncodingFloat32  encodingFormat = "float32"
)

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingLinear16:
		return 2
	case EncodingFloat32:
		return 4
	}
	return -1
}

// EncodingInfo describes a raw PCM stream.
type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// Duration returns how long the given number of frames lasts at this
// encoding's sample rate.
func (e EncodingInfo) Duration(frames int) time.Duration {
	if e.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(frames) / float64(e.SampleRate) * float64(time.Second))
}

// GetCaptureEncodingInfo returns the wire encoding for outbound microphone
// audio.
func GetCaptureEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: CaptureSampleRate, Format: EncodingLinear16}
}

// GetPlaybackEncodingInfo returns the wire encoding for inbound synthesized
// speech.
func GetPlaybackEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: PlaybackSampleRate, Format: EncodingLinear16}
}
