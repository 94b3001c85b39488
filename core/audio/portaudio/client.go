package portaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/shelfscout/shelfscout-core/core/audio"
)

// Client bundles a capture stream and a playback stream over a single
// PortAudio initialization.
type Client struct {
	capture  *CaptureStream
	playback *PlaybackStream
}

func NewClient() (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	capture, err := newCaptureStream()
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	playback, err := newPlaybackStream()
	if err != nil {
		capture.close()
		portaudio.Terminate()
		return nil, err
	}

	return &Client{capture: capture, playback: playback}, nil
}

func (c *Client) StartCapture(onSamples func(samples []float32)) error {
	return c.capture.start(onSamples)
}

func (c *Client) StopCapture() error {
	return c.capture.stop()
}

func (c *Client) Enqueue(samples []float32) {
	c.playback.enqueue(samples)
}

func (c *Client) Flush() {
	c.playback.flush()
}

func (c *Client) Close() {
	c.capture.close()
	c.playback.close()
	portaudio.Terminate()
}

// CaptureStream reads microphone audio in fixed-size buffers and hands each
// buffer to the registered callback.
type CaptureStream struct {
	stream *portaudio.Stream
	in     []float32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newCaptureStream() (*CaptureStream, error) {
	in := make([]float32, audio.CaptureChunkFrames)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(audio.CaptureSampleRate), len(in), in)
	if err != nil {
		return nil, fmt.Errorf("failed to open PortAudio capture stream: %w", err)
	}

	return &CaptureStream{stream: stream, in: in}, nil
}

func (c *CaptureStream) start(onSamples func(samples []float32)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}

	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start PortAudio capture stream: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if err := c.stream.Read(); err != nil {
					continue
				}

				samples := make([]float32, len(c.in))
				copy(samples, c.in)
				onSamples(samples)
			}
		}
	}(c.done)

	return nil
}

func (c *CaptureStream) stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return nil
	}

	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil

	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop PortAudio capture stream: %w", err)
	}
	return nil
}

func (c *CaptureStream) close() {
	_ = c.stop()
	c.stream.Close()
}

// PlaybackStream writes queued audio to the output device from a dedicated
// goroutine, so enqueueing never blocks on the device.
type PlaybackStream struct {
	stream *portaudio.Stream
	out    []float32

	mu      sync.Mutex
	pending []float32
	wake    chan struct{}
	closed  bool
	done    chan struct{}
}

func newPlaybackStream() (*PlaybackStream, error) {
	out := make([]float32, audio.PlaybackSampleRate/10)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(audio.PlaybackSampleRate), len(out), out)
	if err != nil {
		return nil, fmt.Errorf("failed to open PortAudio playback stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start PortAudio playback stream: %w", err)
	}

	p := &PlaybackStream{
		stream: stream,
		out:    out,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go p.run()
	return p, nil
}

func (p *PlaybackStream) enqueue(samples []float32) {
	p.mu.Lock()
	p.pending = append(p.pending, samples...)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *PlaybackStream) flush() {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
}

func (p *PlaybackStream) run() {
	defer close(p.done)
	for range p.wake {
		for {
			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				return
			}
			if len(p.pending) < len(p.out) {
				p.mu.Unlock()
				break
			}
			copy(p.out, p.pending[:len(p.out)])
			p.pending = p.pending[len(p.out):]
			p.mu.Unlock()

			p.stream.Write()
		}
	}
}

func (p *PlaybackStream) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.pending = nil
	p.mu.Unlock()

	close(p.wake)
	<-p.done

	p.stream.Close()
}
