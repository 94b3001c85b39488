package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shelfscout/shelfscout-core/core/audio"
)

const (
	defaultModel          = "models/gemini-2.0-flash-live-001"
	defaultEndpoint       = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultConnectTimeout = 15 * time.Second
)

// ErrSetupTimeout is returned by Connect when the server never acknowledges
// the setup message within the connect timeout.
var ErrSetupTimeout = errors.New("timed out waiting for setup acknowledgement")

// TransportError wraps a websocket-level failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("live transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ToolCall is a single function call issued by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResponse answers a ToolCall.
type ToolResponse struct {
	ID     string
	Name   string
	Output map[string]any
}

// Session is a bidirectional streaming session against the live model API.
// Audio and video flow up, audio and tool calls flow down. A session can be
// reconnected after a failure by calling Connect again.
type Session struct {
	options SessionOptions

	mu         sync.Mutex
	state      SessionState
	conn       *websocket.Conn
	generation int
	queued     []ToolResponse
	speaking   bool

	writeMu sync.Mutex
}

func NewSession(opts ...SessionOption) *Session {
	options := SessionOptions{
		Model:             defaultModel,
		Endpoint:          defaultEndpoint,
		ConnectTimeout:    defaultConnectTimeout,
		SilenceDurationMs: 800,
		PrefixPaddingMs:   20,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Session{options: options, state: StateDisconnected}
}

// State reports the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Speaking reports whether the model is currently producing audio. The flag
// is raised on inline audio and dropped on interruption, turn completion, and
// disconnect.
func (s *Session) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *Session) setSpeaking(speaking bool) {
	s.mu.Lock()
	s.speaking = speaking
	s.mu.Unlock()
}

// Connect dials the live endpoint, sends the setup message, and blocks until
// the server acknowledges it or the connect timeout passes. On success the
// session is ready and queued tool responses are flushed in order. Calling
// Connect on an already ready session does nothing.
func (s *Session) Connect(ctx context.Context, apiKey string) error {
	ctx, span := tracer.Start(ctx, "connect live session")
	defer span.End()

	s.mu.Lock()
	if s.state == StateReady {
		s.mu.Unlock()
		return nil
	}
	next, err := transition(s.state, eventConnect)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.generation++
	generation := s.generation
	s.mu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.ConnectTimeout)
		defer cancel()
	}

	conn, err := s.dial(ctx, apiKey)
	if err != nil {
		s.fail(generation, err)
		return err
	}

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("connection attempt superseded")
	}
	s.state, _ = transition(s.state, eventTransportOpen)
	s.conn = conn
	s.mu.Unlock()

	if err := s.sendMessage(conn, clientMessage{Setup: s.setupPayload()}); err != nil {
		err = fmt.Errorf("failed to send setup message: %w", err)
		s.fail(generation, err)
		_ = conn.Close()
		return err
	}

	if err := s.awaitSetupComplete(ctx, conn); err != nil {
		s.fail(generation, err)
		_ = conn.Close()
		return err
	}

	// Queued tool responses drain before the session is marked ready, so a
	// send racing with the flush cannot overtake them. Anything queued while
	// the lock is released is picked up on the next pass.
	s.mu.Lock()
	for {
		if s.generation != generation {
			s.mu.Unlock()
			_ = conn.Close()
			return fmt.Errorf("connection attempt superseded")
		}
		if len(s.queued) == 0 {
			break
		}
		queued := s.queued
		s.queued = nil
		s.mu.Unlock()

		for _, response := range queued {
			if err := s.sendToolResponseMessage(conn, response); err != nil {
				logger.Warn("failed to flush queued tool response", "error", err)
			}
		}
		s.mu.Lock()
	}
	s.state, _ = transition(s.state, eventSetupComplete)
	s.mu.Unlock()

	go s.readLoop(conn, generation)

	return nil
}

func (s *Session) dial(ctx context.Context, apiKey string) (*websocket.Conn, error) {
	endpoint, err := url.Parse(s.options.Endpoint)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	query := endpoint.Query()
	query.Set("key", apiKey)
	endpoint.RawQuery = query.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), http.Header{})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrSetupTimeout
		}
		if resp != nil {
			return nil, &TransportError{Op: "dial", Err: fmt.Errorf("status %d: %w", resp.StatusCode, err)}
		}
		return nil, &TransportError{Op: "dial", Err: err}
	}
	return conn, nil
}

func (s *Session) setupPayload() *setupPayload {
	payload := &setupPayload{
		Model:            s.options.Model,
		GenerationConfig: generationConfig{ResponseModalities: []string{"AUDIO"}},
		Tools:            []toolDeclarations{{FunctionDeclarations: []functionDeclaration{executeDeclaration()}}},
		RealtimeInputConfig: &realtimeInputConfig{
			AutomaticActivityDetection: automaticActivityDetection{
				StartOfSpeechSensitivity: "START_SENSITIVITY_HIGH",
				EndOfSpeechSensitivity:   "END_SENSITIVITY_HIGH",
				SilenceDurationMs:        s.options.SilenceDurationMs,
				PrefixPaddingMs:          s.options.PrefixPaddingMs,
			},
			ActivityHandling: "START_OF_ACTIVITY_INTERRUPTS",
			TurnCoverage:     "TURN_INCLUDES_ALL_INPUT",
		},
		InputTranscription:  &struct{}{},
		OutputTranscription: &struct{}{},
	}
	if s.options.SystemInstruction != "" {
		payload.SystemInstruction = &content{Parts: []contentPart{{Text: s.options.SystemInstruction}}}
	}
	return payload
}

func (s *Session) awaitSetupComplete(ctx context.Context, conn *websocket.Conn) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		defer conn.SetReadDeadline(time.Time{})
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrSetupTimeout
			}
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return ErrSetupTimeout
			}
			return &TransportError{Op: "read", Err: err}
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.SetupComplete != nil {
			return nil
		}

		// Anything else that arrives before the acknowledgement is handled
		// as usual so nothing is dropped.
		s.dispatch(msg)
	}
}

func (s *Session) readLoop(conn *websocket.Conn, generation int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if s.generation != generation {
				s.mu.Unlock()
				return
			}
			s.state, _ = transition(s.state, eventFailure)
			s.conn = nil
			s.speaking = false
			s.mu.Unlock()

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			} else {
				logger.Warn("live session read failed", "error", err)
			}
			if s.options.DisconnectCallback != nil {
				s.options.DisconnectCallback(err)
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		s.mu.Lock()
		stale := s.generation != generation
		s.mu.Unlock()
		if stale {
			return
		}

		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg serverMessage) {
	switch {
	case msg.GoAway != nil:
		if s.options.GoAwayCallback != nil {
			s.options.GoAwayCallback()
		}
		// The server is about to drop the connection, so stop streaming into
		// it and tear the session down.
		_ = s.Disconnect()
	case msg.ToolCall != nil:
		if s.options.ToolCallCallback == nil {
			return
		}
		for _, call := range msg.ToolCall.FunctionCalls {
			s.options.ToolCallCallback(ToolCall{ID: call.ID, Name: call.Name, Args: call.Args})
		}
	case msg.ServerContent != nil:
		s.dispatchContent(*msg.ServerContent)
	}
}

func (s *Session) dispatchContent(content serverContent) {
	if content.Interrupted {
		s.setSpeaking(false)
		if s.options.InterruptedCallback != nil {
			s.options.InterruptedCallback()
		}
		return
	}

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			s.setSpeaking(true)
			if s.options.AudioCallback != nil {
				s.options.AudioCallback(part.InlineData.Data)
			}
		}
	}

	if content.InputTranscription != nil && s.options.InputTranscriptionCallback != nil {
		if text := strings.TrimSpace(content.InputTranscription.Text); text != "" {
			s.options.InputTranscriptionCallback(text)
		}
	}
	if content.OutputTranscription != nil && s.options.OutputTranscriptionCallback != nil {
		if text := strings.TrimSpace(content.OutputTranscription.Text); text != "" {
			s.options.OutputTranscriptionCallback(text)
		}
	}

	if content.TurnComplete {
		s.setSpeaking(false)
		if s.options.TurnCompleteCallback != nil {
			s.options.TurnCompleteCallback()
		}
	}
}

// SendVideoFrame streams a JPEG frame to the model. Frames sent before the
// session is ready are dropped.
func (s *Session) SendVideoFrame(jpegBase64 string) error {
	conn, ok := s.readyConn()
	if !ok {
		return nil
	}
	return s.sendMessage(conn, clientMessage{RealtimeInput: &realtimeInputPayload{
		Video: &inlineData{MimeType: audio.JPEGMimeType, Data: jpegBase64},
	}})
}

// SendAudio streams a chunk of base64-encoded 16-bit PCM microphone audio.
// Chunks sent before the session is ready are dropped.
func (s *Session) SendAudio(chunkBase64 string) error {
	conn, ok := s.readyConn()
	if !ok {
		return nil
	}
	return s.sendMessage(conn, clientMessage{RealtimeInput: &realtimeInputPayload{
		Audio: &inlineData{MimeType: audio.CaptureMimeType, Data: chunkBase64},
	}})
}

// SendToolResponse answers a tool call. Responses sent before the session is
// ready are queued and flushed in order once setup completes.
func (s *Session) SendToolResponse(response ToolResponse) error {
	s.mu.Lock()
	if s.state != StateReady || s.conn == nil {
		s.queued = append(s.queued, response)
		s.mu.Unlock()
		return nil
	}
	conn := s.conn
	s.mu.Unlock()

	return s.sendToolResponseMessage(conn, response)
}

func (s *Session) sendToolResponseMessage(conn *websocket.Conn, response ToolResponse) error {
	return s.sendMessage(conn, clientMessage{ToolResponse: &toolResponsePayload{
		FunctionResponses: []functionResponse{{
			ID:       response.ID,
			Name:     response.Name,
			Response: response.Output,
		}},
	}})
}

func (s *Session) readyConn() (*websocket.Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.conn == nil {
		return nil, false
	}
	return s.conn, true
}

func (s *Session) sendMessage(conn *websocket.Conn, msg clientMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// Disconnect closes the session and notifies the disconnect callback. It is
// safe to call at any time, including more than once; only a call that tears
// down a live connection notifies.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.generation++
	s.state, _ = transition(s.state, eventDisconnect)
	s.queued = nil
	s.speaking = false
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	s.writeMu.Lock()
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(2*time.Second),
	)
	s.writeMu.Unlock()

	closeErr := conn.Close()

	if s.options.DisconnectCallback != nil {
		s.options.DisconnectCallback(nil)
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close websocket: %w", closeErr)
	}
	return nil
}

func (s *Session) fail(generation int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return
	}
	s.state, _ = transition(s.state, eventFailure)
	s.conn = nil
	s.speaking = false
	logger.Warn("live session failed", "error", err)
}
