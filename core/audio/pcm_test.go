package audio

import (
	"encoding/base64"
	"math"
	"testing"
)

func TestEncodePCM16ClampsClippedSamples(t *testing.T) {
	encoded := EncodePCM16([]float32{2.0, -3.5})

	decoded := DecodePCM16(encoded)
	if decoded[0] != 1 {
		t.Fatalf("expected positive clipping to full scale, got %f", decoded[0])
	}
	if math.Abs(float64(decoded[1]+1)) > 1.0/math.MaxInt16 {
		t.Fatalf("expected negative clipping to full scale, got %f", decoded[1])
	}
}

func TestEncodePCM16IsLittleEndian(t *testing.T) {
	encoded := EncodePCM16([]float32{1})

	if encoded[0] != 0xFF || encoded[1] != 0x7F {
		t.Fatalf("expected little-endian max sample FF 7F, got %X %X", encoded[0], encoded[1])
	}
}

func TestDecodePCM16RoundTripsMidScale(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 0.25}

	decoded := DecodePCM16(EncodePCM16(samples))
	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if math.Abs(float64(decoded[i]-samples[i])) > 1.0/math.MaxInt16 {
			t.Fatalf("expected sample %d to round-trip within one quantization step, got %f", i, decoded[i])
		}
	}
}

func TestDecodeBase64PCM16RejectsInvalidEncoding(t *testing.T) {
	if _, err := DecodeBase64PCM16("not base64!!"); err == nil {
		t.Fatalf("expected invalid base64 to be rejected")
	}
}

func TestEncodeBase64PCM16ProducesValidBase64(t *testing.T) {
	chunk := EncodeBase64PCM16(make([]float32, 16))

	raw, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		t.Fatalf("expected valid base64, got %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("expected 32 bytes of PCM, got %d", len(raw))
	}
}
