// Package insights answers one-off questions about items the shopper can
// see, on top of a text completion collaborator.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/shelfscout/shelfscout-core/core/completion"
)

// Service wraps a completer with grocery-specific prompts. All methods share
// one backoff so a rate limit on any of them quiets all of them.
type Service struct {
	completer completion.Completer
	backoff   *completion.Backoff
}

type ServiceOption func(*Service)

// WithBackoff shares a rate limit backoff with other collaborators.
func WithBackoff(backoff *completion.Backoff) ServiceOption {
	return func(s *Service) { s.backoff = backoff }
}

func NewService(completer completion.Completer, opts ...ServiceOption) *Service {
	service := &Service{
		completer: completer,
		backoff:   completion.NewBackoff(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *Service) complete(ctx context.Context, prompt string, opts ...completion.RequestOption) (string, error) {
	if s.backoff.IsActive() {
		return "", &completion.RequestError{
			Status:  429,
			Kind:    completion.KindRateLimited,
			Message: fmt.Sprintf("backing off for another %s", s.backoff.Remaining()),
		}
	}

	text, err := s.completer.Complete(ctx, prompt, opts...)
	if err != nil {
		if completion.IsRateLimited(err) {
			s.backoff.Arm()
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ItemDetails describes a single item, optionally grounded on a frame that
// shows it.
func (s *Service) ItemDetails(ctx context.Context, label string, opts ...completion.RequestOption) (string, error) {
	prompt := fmt.Sprintf(
		"Give a shopper a short, factual description of %q: what it is, what it is typically used for, and anything worth knowing before buying it. Two or three sentences.",
		label,
	)
	return s.complete(ctx, prompt, opts...)
}

// ExplainIngredients explains what is typically in an item and flags common
// allergens.
func (s *Service) ExplainIngredients(ctx context.Context, label string, opts ...completion.RequestOption) (string, error) {
	prompt := fmt.Sprintf(
		"List the typical ingredients of %q in plain language and call out common allergens. Keep it short.",
		label,
	)
	return s.complete(ctx, prompt, opts...)
}

// RelevantItems filters the displayed labels down to the ones that matter for
// the shopper's current task.
func (s *Service) RelevantItems(ctx context.Context, task string, labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(
		"A shopper wants to: %s\nThese items are visible: %s\nReply with only the visible items relevant to the task, comma separated, exactly as written above. Reply with 'none' if nothing is relevant.",
		task, strings.Join(labels, ", "),
	)
	text, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(text, "none") {
		return nil, nil
	}

	visible := make(map[string]string, len(labels))
	for _, label := range labels {
		visible[strings.ToLower(strings.TrimSpace(label))] = label
	}

	var relevant []string
	seen := map[string]bool{}
	for _, part := range strings.Split(text, ",") {
		key := strings.ToLower(strings.TrimSpace(part))
		if label, ok := visible[key]; ok && !seen[key] {
			relevant = append(relevant, label)
			seen[key] = true
		}
	}
	return relevant, nil
}
