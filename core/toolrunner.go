package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/shelfscout/shelfscout-core/core/live"
)

const defaultToolTimeout = 30 * time.Second

// TaskExecutor carries out a task the model delegated to the client, such as
// looking up an item or checking ingredients, and returns a textual result.
type TaskExecutor func(ctx context.Context, task string) (string, error)

// toolRunner answers the model's tool calls. Every call gets a response, even
// when execution fails or runs out of time, so the model is never left
// blocked on an unanswered call.
type toolRunner struct {
	executor TaskExecutor
	timeout  time.Duration
	respond  func(response live.ToolResponse) error
}

func (r *toolRunner) handle(ctx context.Context, call live.ToolCall) {
	output, err := r.execute(ctx, call)
	if err != nil {
		output = map[string]any{"error": err.Error()}
	}

	if err := r.respond(live.ToolResponse{ID: call.ID, Name: call.Name, Output: output}); err != nil {
		logger.Warn("failed to send tool response", "tool", call.Name, "error", err)
	}
}

func (r *toolRunner) execute(ctx context.Context, call live.ToolCall) (map[string]any, error) {
	if call.Name != "execute" {
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}

	task, ok := call.Args["task"].(string)
	if !ok || task == "" {
		return nil, fmt.Errorf("tool call carried no task")
	}

	if r.executor == nil {
		return nil, fmt.Errorf("no task executor is configured")
	}

	timeout := r.timeout
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type executionResult struct {
		output string
		err    error
	}
	results := make(chan executionResult, 1)
	go func() {
		output, err := r.executor(ctx, task)
		results <- executionResult{output: output, err: err}
	}()

	select {
	case result := <-results:
		if result.err != nil {
			return nil, fmt.Errorf("task failed: %w", result.err)
		}
		return map[string]any{"result": result.output}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("task timed out after %s", timeout)
	}
}
