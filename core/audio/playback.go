package audio

import (
	"sync"
	"time"
)

// PlaybackDevice is a speaker sink. Enqueued samples play back-to-back in
// FIFO order at [PlaybackSampleRate] mono; Flush drops everything that has
// not reached the hardware yet.
type PlaybackDevice interface {
	Enqueue(samples []float32)
	Flush()
}

// PlaybackScheduler decodes inbound 16-bit PCM chunks and schedules each one
// to begin exactly when the previous one ends, tracked by a monotonically
// advancing watermark that is never allowed to fall into the past. Chunks of
// any length therefore play gaplessly without the sender supplying
// timestamps.
type PlaybackScheduler struct {
	device PlaybackDevice
	now    func() time.Time

	mu        sync.Mutex
	watermark time.Time
}

// PlaybackOption adjusts scheduler construction.
type PlaybackOption func(*PlaybackScheduler)

// WithClock overrides the scheduler's time source.
func WithClock(now func() time.Time) PlaybackOption {
	return func(p *PlaybackScheduler) { p.now = now }
}

func NewPlaybackScheduler(device PlaybackDevice, opts ...PlaybackOption) *PlaybackScheduler {
	p := &PlaybackScheduler{device: device, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlayPCM24k decodes one base64 16-bit PCM chunk at [PlaybackSampleRate] and
// schedules it after everything already queued. It returns the time the
// chunk is scheduled to start playing.
func (p *PlaybackScheduler) PlayPCM24k(chunkBase64 string) (time.Time, error) {
	samples, err := DecodeBase64PCM16(chunkBase64)
	if err != nil {
		return time.Time{}, err
	}

	p.mu.Lock()
	start := p.now()
	if p.watermark.After(start) {
		start = p.watermark
	}
	p.watermark = start.Add(GetPlaybackEncodingInfo().Duration(len(samples)))
	p.mu.Unlock()

	p.device.Enqueue(samples)
	return start, nil
}

// Stop drops all pending audio and resets the watermark, so audio queued
// before an interruption never plays after the model has been told to stop.
// Safe to call at any time.
func (p *PlaybackScheduler) Stop() {
	p.mu.Lock()
	p.watermark = time.Time{}
	p.mu.Unlock()

	p.device.Flush()
}
