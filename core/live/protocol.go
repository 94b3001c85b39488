package live

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

type clientMessage struct {
	Setup         *setupPayload         `json:"setup,omitempty"`
	RealtimeInput *realtimeInputPayload `json:"realtimeInput,omitempty"`
	ToolResponse  *toolResponsePayload  `json:"toolResponse,omitempty"`
}

type setupPayload struct {
	Model               string               `json:"model"`
	GenerationConfig    generationConfig     `json:"generationConfig"`
	SystemInstruction   *content             `json:"systemInstruction,omitempty"`
	Tools               []toolDeclarations   `json:"tools,omitempty"`
	RealtimeInputConfig *realtimeInputConfig `json:"realtimeInputConfig,omitempty"`
	InputTranscription  *struct{}            `json:"inputAudioTranscription,omitempty"`
	OutputTranscription *struct{}            `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type content struct {
	Parts []contentPart `json:"parts"`
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type toolDeclarations struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Behavior    string             `json:"behavior,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

type realtimeInputConfig struct {
	AutomaticActivityDetection automaticActivityDetection `json:"automaticActivityDetection"`
	ActivityHandling           string                     `json:"activityHandling,omitempty"`
	TurnCoverage               string                     `json:"turnCoverage,omitempty"`
}

type automaticActivityDetection struct {
	StartOfSpeechSensitivity string `json:"startOfSpeechSensitivity,omitempty"`
	EndOfSpeechSensitivity   string `json:"endOfSpeechSensitivity,omitempty"`
	SilenceDurationMs        int    `json:"silenceDurationMs,omitempty"`
	PrefixPaddingMs          int    `json:"prefixPaddingMs,omitempty"`
}

type realtimeInputPayload struct {
	Video *inlineData `json:"video,omitempty"`
	Audio *inlineData `json:"audio,omitempty"`
}

type toolResponsePayload struct {
	FunctionResponses []functionResponse `json:"functionResponses"`
}

type functionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type serverMessage struct {
	SetupComplete *struct{}        `json:"setupComplete,omitempty"`
	GoAway        *goAwayPayload   `json:"goAway,omitempty"`
	ToolCall      *toolCallPayload `json:"toolCall,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
	UsageMetadata *json.RawMessage `json:"usageMetadata,omitempty"`
}

type goAwayPayload struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

type toolCallPayload struct {
	FunctionCalls []functionCall `json:"functionCalls"`
}

type functionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type serverContent struct {
	Interrupted         bool           `json:"interrupted,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	ModelTurn           *content       `json:"modelTurn,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text string `json:"text,omitempty"`
}

type executeParameters struct {
	Task string `json:"task" jsonschema:"title=task,description=The task to carry out phrased as a standalone instruction"`
}

func executeDeclaration() functionDeclaration {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return functionDeclaration{
		Name:        "execute",
		Description: "Carry out a task on behalf of the shopper, such as looking up an item or checking ingredients.",
		Behavior:    "BLOCKING",
		Parameters:  reflector.Reflect(executeParameters{}),
	}
}
