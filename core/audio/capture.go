package audio

import "sync"

// CaptureDevice is a microphone source delivering normalized float frames at
// [CaptureSampleRate] mono.
type CaptureDevice interface {
	StartCapture(onSamples func(samples []float32)) error
	StopCapture() error
}

// CaptureEncoder buffers raw float microphone samples and emits one
// base64-encoded little-endian 16-bit PCM chunk for every full
// [CaptureChunkDuration] of audio.
//
// Chunk ownership transfers to the callback; the encoder never reuses an
// emitted buffer.
type CaptureEncoder struct {
	device  CaptureDevice
	onChunk func(pcmBase64 string)

	mu      sync.Mutex
	pending []float32
	started bool
}

// NewCaptureEncoder wires a capture device to a chunk callback. The callback
// runs inline on the device's audio path and should not block.
func NewCaptureEncoder(device CaptureDevice, onChunk func(pcmBase64 string)) *CaptureEncoder {
	if onChunk == nil {
		onChunk = func(string) {}
	}
	return &CaptureEncoder{device: device, onChunk: onChunk}
}

// Start begins capturing. Starting an already started encoder is a no-op.
func (e *CaptureEncoder) Start() error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	if err := e.device.StartCapture(e.push); err != nil {
		e.mu.Lock()
		e.started = false
		e.mu.Unlock()
		return &DeviceError{Device: "microphone", Op: "start capture", Err: err}
	}
	return nil
}

func (e *CaptureEncoder) push(samples []float32) {
	var chunks []string

	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.pending = append(e.pending, samples...)
	for len(e.pending) >= CaptureChunkFrames {
		chunks = append(chunks, EncodeBase64PCM16(e.pending[:CaptureChunkFrames]))
		e.pending = e.pending[CaptureChunkFrames:]
	}
	e.mu.Unlock()

	for _, chunk := range chunks {
		e.onChunk(chunk)
	}
}

// Stop disconnects the capture device and discards any partial chunk. It is
// safe to call even if capture was never started, and is idempotent.
func (e *CaptureEncoder) Stop() error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	e.pending = nil
	e.mu.Unlock()

	if err := e.device.StopCapture(); err != nil {
		return &DeviceError{Device: "microphone", Op: "stop capture", Err: err}
	}
	return nil
}
