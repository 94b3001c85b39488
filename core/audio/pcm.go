package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodePCM16 quantizes normalized float samples to little-endian signed
// 16-bit PCM. Samples are clamped to [-1,1] first so clipped input wraps to
// full scale instead of wrapping around.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(sample*math.MaxInt16)))
	}
	return out
}

// DecodePCM16 expands little-endian signed 16-bit PCM into normalized float
// samples. A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / math.MaxInt16
	}
	return out
}

// EncodeBase64PCM16 quantizes and base64-encodes normalized float samples for
// the session wire protocol.
func EncodeBase64PCM16(samples []float32) string {
	return base64.StdEncoding.EncodeToString(EncodePCM16(samples))
}

// DecodeBase64PCM16 decodes one base64 16-bit PCM chunk into normalized float
// samples.
func DecodeBase64PCM16(chunk string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio chunk: %w", err)
	}
	return DecodePCM16(raw), nil
}
