package live

import "time"

type SessionOptions struct {
	Model             string
	SystemInstruction string
	Endpoint          string
	ConnectTimeout    time.Duration

	SilenceDurationMs int
	PrefixPaddingMs   int

	AudioCallback               func(chunkBase64 string)
	ToolCallCallback            func(call ToolCall)
	InterruptedCallback         func()
	TurnCompleteCallback        func()
	InputTranscriptionCallback  func(text string)
	OutputTranscriptionCallback func(text string)
	GoAwayCallback              func()
	DisconnectCallback          func(err error)
}

type SessionOption func(*SessionOptions)

// WithModel overrides the model the session is set up with.
func WithModel(model string) SessionOption {
	return func(o *SessionOptions) { o.Model = model }
}

// WithSystemInstruction sets the system instruction sent in the setup message.
func WithSystemInstruction(instruction string) SessionOption {
	return func(o *SessionOptions) { o.SystemInstruction = instruction }
}

// WithEndpoint overrides the websocket endpoint, primarily for testing.
func WithEndpoint(endpoint string) SessionOption {
	return func(o *SessionOptions) { o.Endpoint = endpoint }
}

// WithConnectTimeout bounds how long Connect waits for the transport and the
// setup acknowledgement together.
func WithConnectTimeout(timeout time.Duration) SessionOption {
	return func(o *SessionOptions) { o.ConnectTimeout = timeout }
}

// WithSpeechDetection tunes the server-side voice activity detector.
func WithSpeechDetection(silenceDuration, prefixPadding time.Duration) SessionOption {
	return func(o *SessionOptions) {
		o.SilenceDurationMs = int(silenceDuration.Milliseconds())
		o.PrefixPaddingMs = int(prefixPadding.Milliseconds())
	}
}

// WithAudioCallback registers a callback for each model audio chunk. The chunk
// is base64-encoded 16-bit PCM at the playback sample rate.
func WithAudioCallback(callback func(chunkBase64 string)) SessionOption {
	return func(o *SessionOptions) { o.AudioCallback = callback }
}

// WithToolCallCallback registers a callback invoked for every function call
// the model issues.
func WithToolCallCallback(callback func(call ToolCall)) SessionOption {
	return func(o *SessionOptions) { o.ToolCallCallback = callback }
}

// WithInterruptedCallback registers a callback invoked when the model's turn
// is interrupted, typically because the user started speaking.
func WithInterruptedCallback(callback func()) SessionOption {
	return func(o *SessionOptions) { o.InterruptedCallback = callback }
}

// WithTurnCompleteCallback registers a callback invoked when the model
// finishes a turn.
func WithTurnCompleteCallback(callback func()) SessionOption {
	return func(o *SessionOptions) { o.TurnCompleteCallback = callback }
}

// WithInputTranscriptionCallback registers a callback for transcripts of the
// user's speech.
func WithInputTranscriptionCallback(callback func(text string)) SessionOption {
	return func(o *SessionOptions) { o.InputTranscriptionCallback = callback }
}

// WithOutputTranscriptionCallback registers a callback for transcripts of the
// model's speech.
func WithOutputTranscriptionCallback(callback func(text string)) SessionOption {
	return func(o *SessionOptions) { o.OutputTranscriptionCallback = callback }
}

// WithGoAwayCallback registers a callback invoked when the server announces
// it is about to drop the connection.
func WithGoAwayCallback(callback func()) SessionOption {
	return func(o *SessionOptions) { o.GoAwayCallback = callback }
}

// WithDisconnectCallback registers a callback invoked once when the session
// leaves the ready state for good, with the error that caused it if any.
func WithDisconnectCallback(callback func(err error)) SessionOption {
	return func(o *SessionOptions) { o.DisconnectCallback = callback }
}
