package assistant

import (
	"time"

	"github.com/shelfscout/shelfscout-core/core/audio"
	"github.com/shelfscout/shelfscout-core/core/detection"
	"github.com/shelfscout/shelfscout-core/core/live"
	"github.com/shelfscout/shelfscout-core/core/tracking"
)

type assistantOptions struct {
	session        Session
	sessionOptions []live.SessionOption

	captureDevice  audio.CaptureDevice
	playbackDevice audio.PlaybackDevice

	detector detection.Detector

	executor    TaskExecutor
	toolTimeout time.Duration

	onDisplayedItems func(items []tracking.TrackedItem)
}

type AssistantOption func(*assistantOptions)

// WithSession injects a session instead of letting the assistant construct
// its own.
func WithSession(session Session) AssistantOption {
	return func(o *assistantOptions) { o.session = session }
}

// WithSessionOptions forwards options to the session the assistant
// constructs. Ignored when a session is injected with [WithSession].
func WithSessionOptions(opts ...live.SessionOption) AssistantOption {
	return func(o *assistantOptions) { o.sessionOptions = append(o.sessionOptions, opts...) }
}

// WithCaptureDevice wires a microphone. Without one the assistant runs
// without audio input.
func WithCaptureDevice(device audio.CaptureDevice) AssistantOption {
	return func(o *assistantOptions) { o.captureDevice = device }
}

// WithPlaybackDevice wires a speaker. Without one model audio is dropped.
func WithPlaybackDevice(device audio.PlaybackDevice) AssistantOption {
	return func(o *assistantOptions) { o.playbackDevice = device }
}

// WithDetector wires an item detector run against every processed frame.
func WithDetector(detector detection.Detector) AssistantOption {
	return func(o *assistantOptions) { o.detector = detector }
}

// WithTaskExecutor sets the executor behind the model's execute tool.
func WithTaskExecutor(executor TaskExecutor) AssistantOption {
	return func(o *assistantOptions) { o.executor = executor }
}

// WithToolTimeout bounds how long a single tool call may run before the model
// gets an error response instead.
func WithToolTimeout(timeout time.Duration) AssistantOption {
	return func(o *assistantOptions) { o.toolTimeout = timeout }
}

// WithDisplayedItemsCallback registers a callback invoked with a snapshot of
// the displayed items after every change.
func WithDisplayedItemsCallback(callback func(items []tracking.TrackedItem)) AssistantOption {
	return func(o *assistantOptions) { o.onDisplayedItems = callback }
}
