package audio

import (
	"encoding/base64"
	"errors"
	"testing"
)

type fakeCaptureDevice struct {
	onSamples    func([]float32)
	started      bool
	stopped      bool
	startErr     error
	stopErr      error
	startedCount int
}

func (d *fakeCaptureDevice) StartCapture(onSamples func([]float32)) error {
	if d.startErr != nil {
		return d.startErr
	}
	d.onSamples = onSamples
	d.started = true
	d.startedCount++
	return nil
}

func (d *fakeCaptureDevice) StopCapture() error {
	d.stopped = true
	return d.stopErr
}

func TestCaptureEncoderEmitsOnEveryFullChunk(t *testing.T) {
	device := &fakeCaptureDevice{}
	var chunks []string
	encoder := NewCaptureEncoder(device, func(chunk string) { chunks = append(chunks, chunk) })

	if err := encoder.Start(); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	// 2.5 chunks worth of audio in uneven device callbacks.
	device.onSamples(make([]float32, 1000))
	device.onSamples(make([]float32, 1000))
	device.onSamples(make([]float32, 2000))

	if len(chunks) != 2 {
		t.Fatalf("expected 2 full chunks from 4000 frames, got %d", len(chunks))
	}
	raw, err := base64.StdEncoding.DecodeString(chunks[0])
	if err != nil {
		t.Fatalf("expected base64 chunk, got %v", err)
	}
	if len(raw) != CaptureChunkFrames*2 {
		t.Fatalf("expected %d bytes per chunk, got %d", CaptureChunkFrames*2, len(raw))
	}
}

func TestCaptureEncoderEmitsMultipleChunksFromOneCallback(t *testing.T) {
	device := &fakeCaptureDevice{}
	count := 0
	encoder := NewCaptureEncoder(device, func(string) { count++ })

	if err := encoder.Start(); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	device.onSamples(make([]float32, 3*CaptureChunkFrames))

	if count != 3 {
		t.Fatalf("expected 3 chunks from one large callback, got %d", count)
	}
}

func TestCaptureEncoderStartIsIdempotent(t *testing.T) {
	device := &fakeCaptureDevice{}
	encoder := NewCaptureEncoder(device, nil)

	if err := encoder.Start(); err != nil {
		t.Fatalf("expected first start to succeed, got %v", err)
	}
	if err := encoder.Start(); err != nil {
		t.Fatalf("expected repeated start to be a no-op, got %v", err)
	}
	if device.startedCount != 1 {
		t.Fatalf("expected device started once, got %d", device.startedCount)
	}
}

func TestCaptureEncoderStopWithoutStartIsSafe(t *testing.T) {
	device := &fakeCaptureDevice{}
	encoder := NewCaptureEncoder(device, nil)

	if err := encoder.Stop(); err != nil {
		t.Fatalf("expected stop before start to be safe, got %v", err)
	}
	if device.stopped {
		t.Fatalf("expected device untouched by stop before start")
	}
}

func TestCaptureEncoderStopDiscardsPartialChunk(t *testing.T) {
	device := &fakeCaptureDevice{}
	count := 0
	encoder := NewCaptureEncoder(device, func(string) { count++ })

	if err := encoder.Start(); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	device.onSamples(make([]float32, CaptureChunkFrames/2))
	if err := encoder.Stop(); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}

	// Stale device callbacks after stop must be ignored.
	device.onSamples(make([]float32, CaptureChunkFrames))

	if count != 0 {
		t.Fatalf("expected no chunks after stop, got %d", count)
	}
	if !device.stopped {
		t.Fatalf("expected device stop to be called")
	}
}

func TestCaptureEncoderSurfacesDeviceError(t *testing.T) {
	device := &fakeCaptureDevice{startErr: errors.New("no capture device")}
	encoder := NewCaptureEncoder(device, nil)

	err := encoder.Start()
	if err == nil {
		t.Fatalf("expected device error to surface")
	}
	var deviceErr *DeviceError
	if !errors.As(err, &deviceErr) {
		t.Fatalf("expected a DeviceError, got %T", err)
	}
	if deviceErr.Device != "microphone" {
		t.Fatalf("expected microphone device error, got %q", deviceErr.Device)
	}
}
