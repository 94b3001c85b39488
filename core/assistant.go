// Package assistant ties a live model session, the audio path, and item
// tracking together into a shopper-facing camera assistant.
package assistant

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/shelfscout/shelfscout-core/core/audio"
	"github.com/shelfscout/shelfscout-core/core/detection"
	"github.com/shelfscout/shelfscout-core/core/live"
	"github.com/shelfscout/shelfscout-core/core/tracking"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Session is the live connection the assistant talks through.
type Session interface {
	Connect(ctx context.Context, apiKey string) error
	SendAudio(chunkBase64 string) error
	SendVideoFrame(jpegBase64 string) error
	SendToolResponse(response live.ToolResponse) error
	Disconnect() error
}

// Assistant owns the capture/answer loop: microphone chunks and camera
// frames go up to the model, audio and tool calls come back down, and the
// tracked item overlay is kept smooth between detection cycles.
type Assistant struct {
	session  Session
	capture  *audio.CaptureEncoder
	playback *audio.PlaybackScheduler
	detector detection.Detector
	tools    *toolRunner

	onDisplayedItems func(items []tracking.TrackedItem)

	mu        sync.Mutex
	displayed []tracking.TrackedItem
	target    []tracking.DetectedItem

	baseContext context.Context
	closeOnce   sync.Once
}

func NewAssistant(opts ...AssistantOption) *Assistant {
	options := assistantOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	a := &Assistant{
		detector:         options.detector,
		onDisplayedItems: options.onDisplayedItems,
		baseContext:      context.Background(),
	}

	if options.playbackDevice != nil {
		a.playback = audio.NewPlaybackScheduler(options.playbackDevice)
	}

	a.session = options.session
	if a.session == nil {
		sessionOptions := append([]live.SessionOption{
			live.WithAudioCallback(a.handleModelAudio),
			live.WithInterruptedCallback(a.handleInterrupted),
			live.WithToolCallCallback(a.handleToolCall),
		}, options.sessionOptions...)
		a.session = live.NewSession(sessionOptions...)
	}

	a.tools = &toolRunner{
		executor: options.executor,
		timeout:  options.toolTimeout,
		respond:  func(response live.ToolResponse) error { return a.session.SendToolResponse(response) },
	}

	if options.captureDevice != nil {
		a.capture = audio.NewCaptureEncoder(options.captureDevice, func(chunk string) {
			if err := a.session.SendAudio(chunk); err != nil {
				logger.Warn("failed to send audio chunk", "error", err)
			}
		})
	}

	return a
}

// Start connects the session and begins streaming microphone audio. ctx is
// the base context for tool calls issued during the session.
func (a *Assistant) Start(ctx context.Context, apiKey string) error {
	a.baseContext = ctx

	if err := a.session.Connect(ctx, apiKey); err != nil {
		return fmt.Errorf("failed to connect session: %w", err)
	}

	if a.capture != nil {
		if err := a.capture.Start(); err != nil {
			_ = a.session.Disconnect()
			return fmt.Errorf("failed to start capture: %w", err)
		}
	}

	return nil
}

// ProcessFrame streams a camera frame to the model and, when a detector is
// wired, refreshes the tracked items from it.
func (a *Assistant) ProcessFrame(ctx context.Context, frameJPEG []byte) error {
	ctx, span := tracer.Start(ctx, "process frame")
	defer span.End()

	if err := a.session.SendVideoFrame(base64.StdEncoding.EncodeToString(frameJPEG)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to send frame: %w", err)
	}

	if a.detector == nil {
		return nil
	}

	detected, err := a.detector.Detect(ctx, frameJPEG)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to detect items: %w", err)
	}

	a.ApplyDetections(detected)
	return nil
}

// ApplyDetections reconciles a fresh detection result into the displayed
// items, preserving identities and smoothing boxes.
func (a *Assistant) ApplyDetections(detected []tracking.DetectedItem) {
	a.mu.Lock()
	a.target = detected
	a.displayed = tracking.MergeWithPrevious(a.displayed, detected)
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	a.notifyDisplayed(snapshot)
}

// AnimateDisplayed eases the displayed boxes one step toward the latest
// detections. Call it on every render tick between detection cycles.
func (a *Assistant) AnimateDisplayed() {
	a.mu.Lock()
	a.displayed = tracking.StepDisplayedTowardTarget(a.displayed, a.target)
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	a.notifyDisplayed(snapshot)
}

// DisplayedItems returns a deep snapshot of the current overlay.
func (a *Assistant) DisplayedItems() []tracking.TrackedItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Assistant) snapshotLocked() []tracking.TrackedItem {
	var snapshot []tracking.TrackedItem
	if err := copier.Copy(&snapshot, a.displayed); err != nil {
		logger.Warn("failed to snapshot displayed items", "error", err)
	}
	return snapshot
}

func (a *Assistant) notifyDisplayed(snapshot []tracking.TrackedItem) {
	if a.onDisplayedItems != nil {
		a.onDisplayedItems(snapshot)
	}
}

func (a *Assistant) handleModelAudio(chunkBase64 string) {
	if a.playback == nil {
		return
	}
	if _, err := a.playback.PlayPCM24k(chunkBase64); err != nil {
		logger.Warn("failed to play model audio", "error", err)
	}
}

func (a *Assistant) handleInterrupted() {
	if a.playback != nil {
		a.playback.Stop()
	}
}

func (a *Assistant) handleToolCall(call live.ToolCall) {
	go a.tools.handle(a.baseContext, call)
}

// Close stops capture and playback and disconnects the session. Idempotent;
// callbacks arriving after Close are harmless.
func (a *Assistant) Close() {
	a.closeOnce.Do(func() {
		if a.capture != nil {
			if err := a.capture.Stop(); err != nil {
				recordedErr := fmt.Errorf("failed to stop capture: %w", err)
				span := trace.SpanFromContext(a.baseContext)
				span.RecordError(recordedErr)
				span.SetStatus(codes.Error, recordedErr.Error())
			}
		}

		if a.playback != nil {
			a.playback.Stop()
		}

		if err := a.session.Disconnect(); err != nil {
			recordedErr := fmt.Errorf("failed to disconnect session: %w", err)
			span := trace.SpanFromContext(a.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}
	})
}
