// Package detection finds labelled grocery items in camera frames, either
// through a local model or a detection server.
package detection

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shelfscout/shelfscout-core/core/tracking"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

// Detector finds items in a JPEG-encoded frame. Boxes are normalized to the
// frame dimensions.
type Detector interface {
	Detect(ctx context.Context, frameJPEG []byte) ([]tracking.DetectedItem, error)
}

// Client talks to a detection server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Items []struct {
		Label string               `json:"label"`
		BBox  tracking.BoundingBox `json:"bbox"`
	} `json:"items"`
}

// Detect sends the frame to the server and returns the items it found.
func (c *Client) Detect(ctx context.Context, frameJPEG []byte) ([]tracking.DetectedItem, error) {
	ctx, span := tracer.Start(ctx, "detect items")
	defer span.End()

	requestBodyBytes, err := json.Marshal(detectRequest{
		Image: base64.StdEncoding.EncodeToString(frameJPEG),
	})
	if err != nil {
		err = fmt.Errorf("error marshalling JSON: %w", err)
		span.RecordError(err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/detect", bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, readErr := io.ReadAll(resp.Body); readErr == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		err := fmt.Errorf("non-OK HTTP status: %s", resp.Status)
		span.RecordError(err)
		return nil, err
	}

	var response detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		err = fmt.Errorf("error unmarshalling response: %w", err)
		span.RecordError(err)
		return nil, err
	}

	items := make([]tracking.DetectedItem, 0, len(response.Items))
	for _, item := range response.Items {
		items = append(items, tracking.DetectedItem{
			Label: item.Label,
			Box:   item.BBox.Clamped(),
		})
	}
	span.SetAttributes(attribute.Int("response.item_count", len(items)))
	return items, nil
}

// Health checks whether the detection server is reachable and ready.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}
	return nil
}
