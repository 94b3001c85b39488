package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shelfscout/shelfscout-core/core/completion"
)

func TestComplete(t *testing.T) {
	var gotPath string
	var gotBody struct {
		Contents []struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"contents"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Oat milk is "},{"text":"in aisle five."}]}}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithModel("test-model"))
	text, err := client.Complete(context.Background(), "Where is the oat milk?")
	if err != nil {
		t.Fatalf("expected completion to succeed, got %v", err)
	}
	if text != "Oat milk is in aisle five." {
		t.Fatalf("expected joined candidate text, got %q", text)
	}
	if !strings.Contains(gotPath, "test-model") {
		t.Fatalf("expected model in request path, got %q", gotPath)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 1 {
		t.Fatalf("expected a single text part, got %+v", gotBody.Contents)
	}
	if gotBody.Contents[0].Parts[0].Text != "Where is the oat milk?" {
		t.Fatalf("expected the prompt as the first part, got %q", gotBody.Contents[0].Parts[0].Text)
	}
}

func TestCompleteWithImage(t *testing.T) {
	var gotBody struct {
		Contents []struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"contents"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"A carton of oat milk."}]}}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	text, err := client.Complete(context.Background(), "What is this?",
		completion.WithImage("aW1hZ2U=", "image/jpeg"),
	)
	if err != nil {
		t.Fatalf("expected completion to succeed, got %v", err)
	}
	if text != "A carton of oat milk." {
		t.Fatalf("expected candidate text, got %q", text)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 2 {
		t.Fatalf("expected a text and an image part, got %+v", gotBody.Contents)
	}
	image := gotBody.Contents[0].Parts[1].InlineData
	if image == nil || image.MimeType != "image/jpeg" || image.Data != "aW1hZ2U=" {
		t.Fatalf("expected inline image data, got %+v", image)
	}
}

func TestCompleteRateLimitArmsBackoff(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	backoff := completion.NewBackoff(completion.WithBackoffClock(func() time.Time { return now }))
	client := NewClient("test-key", WithBaseURL(server.URL), WithBackoff(backoff))

	_, err := client.Complete(context.Background(), "prompt")
	if !completion.IsRateLimited(err) {
		t.Fatalf("expected a rate limited error, got %v", err)
	}
	if !backoff.IsActive() {
		t.Fatalf("expected the backoff to be armed")
	}

	// While the backoff is active requests never reach the API.
	_, err = client.Complete(context.Background(), "prompt")
	if !completion.IsRateLimited(err) {
		t.Fatalf("expected a local rate limited error, got %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected a single request to reach the API, got %d", requests)
	}

	now = now.Add(31 * time.Second)
	_, _ = client.Complete(context.Background(), "prompt")
	if requests != 2 {
		t.Fatalf("expected the request to go through after the backoff, got %d", requests)
	}
}

func TestCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.Complete(context.Background(), "prompt")

	var requestErr *completion.RequestError
	if !errors.As(err, &requestErr) {
		t.Fatalf("expected a request error, got %v", err)
	}
	if requestErr.Status != http.StatusInternalServerError || requestErr.Kind != completion.KindServerError {
		t.Fatalf("expected a server error, got %+v", requestErr)
	}
	if completion.IsRateLimited(err) {
		t.Fatalf("expected a server error to not be rate limited")
	}
}

func TestCompleteEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	if _, err := client.Complete(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected an error for an empty candidate list")
	}
}
