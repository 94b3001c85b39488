package detection

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetect(t *testing.T) {
	var gotRequest detectRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("expected /detect request, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Write([]byte(`{"items":[
			{"label":"canned tuna","bbox":{"x":0.1,"y":0.2,"width":0.3,"height":0.4}},
			{"label":"oat milk","bbox":{"x":0.5,"y":0.5,"width":0.0,"height":0.2}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	items, err := client.Detect(context.Background(), []byte("jpeg bytes"))
	if err != nil {
		t.Fatalf("expected detection to succeed, got %v", err)
	}

	if gotRequest.Image != base64.StdEncoding.EncodeToString([]byte("jpeg bytes")) {
		t.Fatalf("expected the frame to be base64 encoded, got %q", gotRequest.Image)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Label != "canned tuna" || items[0].Box.X != 0.1 || items[0].Box.Height != 0.4 {
		t.Fatalf("expected the first item to carry its box, got %+v", items[0])
	}
	// Degenerate boxes are widened to the minimum size.
	if items[1].Box.Width != 0.01 {
		t.Fatalf("expected a degenerate box to be clamped, got %+v", items[1].Box)
	}
}

func TestDetectServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Detect(context.Background(), []byte("jpeg bytes")); err == nil {
		t.Fatalf("expected an error for a failing server")
	}
}

func TestHealth(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("expected /health request, got %s", r.URL.Path)
		}
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("expected a healthy server, got %v", err)
	}

	healthy = false
	if err := client.Health(context.Background()); err == nil {
		t.Fatalf("expected an error for an unhealthy server")
	}
}
