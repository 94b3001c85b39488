// Package completion provides one-shot text completion against a multimodal
// model, with rate limit tracking shared across callers.
package completion

import "context"

// Completer produces a single text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts ...RequestOption) (string, error)
}

type RequestOptions struct {
	ImageBase64   string
	ImageMimeType string
}

type RequestOption func(*RequestOptions)

// WithImage attaches a base64-encoded image to the prompt.
func WithImage(imageBase64, mimeType string) RequestOption {
	return func(o *RequestOptions) {
		o.ImageBase64 = imageBase64
		o.ImageMimeType = mimeType
	}
}
