// Package gemini implements completion.Completer against the Gemini REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shelfscout/shelfscout-core/core/completion"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultModel   = "gemini-2.0-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
)

type Client struct {
	apiKey  string
	model   string
	baseURL string

	backoff    *completion.Backoff
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithModel overrides the completion model.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithBaseURL overrides the API base URL, primarily for testing.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithBackoff shares a rate limit backoff with other clients. Requests are
// rejected locally while it is active and it is armed when the API returns a
// rate limit rejection.
func WithBackoff(backoff *completion.Backoff) ClientOption {
	return func(c *Client) { c.backoff = backoff }
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		backoff:    completion.NewBackoff(),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type requestBody struct {
	Contents []requestContent `json:"contents"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type responseBody struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *Client) Complete(ctx context.Context, prompt string, opts ...completion.RequestOption) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt completion")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model))

	options := completion.RequestOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if c.backoff.IsActive() {
		err := &completion.RequestError{
			Status:  http.StatusTooManyRequests,
			Kind:    completion.KindRateLimited,
			Message: fmt.Sprintf("backing off for another %s", c.backoff.Remaining()),
		}
		span.RecordError(err)
		return "", err
	}

	parts := []requestPart{{Text: prompt}}
	if options.ImageBase64 != "" {
		parts = append(parts, requestPart{InlineData: &inlineData{
			MimeType: options.ImageMimeType,
			Data:     options.ImageBase64,
		}})
	}

	requestBodyBytes, err := json.Marshal(requestBody{
		Contents: []requestContent{{Parts: parts}},
	})
	if err != nil {
		err = fmt.Errorf("error marshalling JSON: %w", err)
		span.RecordError(err)
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		return "", err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, readErr := io.ReadAll(resp.Body); readErr == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}

		requestErr := &completion.RequestError{
			Status: resp.StatusCode,
			Kind:   completion.KindForStatus(resp.StatusCode),
		}
		if requestErr.Kind == completion.KindRateLimited {
			c.backoff.Arm()
			logger.Warn("completion rate limited, backing off", "window", c.backoff.Remaining())
		}
		span.RecordError(requestErr)
		return "", requestErr
	}

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("error reading response body: %w", err)
		span.RecordError(err)
		return "", err
	}

	var response responseBody
	if err := json.Unmarshal(respBodyBytes, &response); err != nil {
		err = fmt.Errorf("error unmarshalling response: %w", err)
		span.RecordError(err)
		return "", err
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		err := fmt.Errorf("completion response contained no candidates")
		span.RecordError(err)
		return "", err
	}

	text := ""
	for _, part := range response.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}
