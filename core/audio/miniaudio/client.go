package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

// Client owns one miniaudio context shared by the capture and playback
// devices. Capture runs at 16kHz mono float32, playback at 24kHz mono
// float32, matching the session wire rates so no resampling happens on the
// hot path.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	captureClient
	playbackClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{audioContext: audioCtx}

	if err := client.captureClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	return &client, nil
}

// StartCapture begins delivering normalized microphone frames. It satisfies
// [audio.CaptureDevice].
func (c *Client) StartCapture(onSamples func(samples []float32)) error {
	return c.captureClient.Start(onSamples)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

// Enqueue appends samples to the playback queue. It satisfies
// [audio.PlaybackDevice].
func (c *Client) Enqueue(samples []float32) {
	c.playbackClient.Enqueue(samples)
}

func (c *Client) Flush() {
	c.playbackClient.Flush()
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
		c.audioContext = nil
	}
}
