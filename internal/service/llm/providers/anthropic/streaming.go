package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	domainllm "appforge/internal/domain/services/llm"
)

// pendingTool accumulates one in-flight tool_use block while its input
// JSON arrives in deltas.
type pendingTool struct {
	id    string
	name  string
	input strings.Builder
}

// Stream performs a streaming completion. The returned channel emits text
// chunks as they arrive and complete tool invocations once their input
// JSON has fully accumulated, terminated by a Done or Error event.
func (p *Provider) Stream(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	apiParams, err := buildMessageParams(req)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	// Buffered to prevent blocking the SDK event loop on slow consumers
	eventChan := make(chan domainllm.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		stream := p.client.Messages.NewStreaming(ctx, apiParams)

		// Accumulator for final message metadata (stop reason, usage)
		message := anthropic.Message{}
		var tool *pendingTool

		send := func(event domainllm.StreamEvent) bool {
			select {
			case <-ctx.Done():
				return false
			case eventChan <- event:
				return true
			}
		}

		for stream.Next() {
			event := stream.Current()

			if err := message.Accumulate(event); err != nil {
				send(domainllm.StreamEvent{
					Type: domainllm.EventError,
					Err:  fmt.Errorf("failed to accumulate message: %w", err),
				})
				return
			}

			switch e := event.AsAny().(type) {
			case anthropic.ContentBlockStartEvent:
				if e.ContentBlock.Type == "tool_use" {
					tool = &pendingTool{
						id:   e.ContentBlock.ID,
						name: e.ContentBlock.Name,
					}
				}

			case anthropic.ContentBlockDeltaEvent:
				switch e.Delta.Type {
				case "text_delta":
					if !send(domainllm.StreamEvent{Type: domainllm.EventText, Text: e.Delta.Text}) {
						return
					}
				case "input_json_delta":
					if tool != nil {
						tool.input.WriteString(e.Delta.PartialJSON)
					}
				}

			case anthropic.ContentBlockStopEvent:
				if tool != nil {
					input := tool.input.String()
					if input == "" {
						input = "{}"
					}
					ok := send(domainllm.StreamEvent{
						Type: domainllm.EventToolUse,
						ToolUse: &domainllm.ToolUse{
							ID:    tool.id,
							Name:  tool.name,
							Input: json.RawMessage(input),
						},
					})
					tool = nil
					if !ok {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			send(domainllm.StreamEvent{
				Type: domainllm.EventError,
				Err:  fmt.Errorf("anthropic streaming error: %w", err),
			})
			return
		}

		send(domainllm.StreamEvent{
			Type:       domainllm.EventDone,
			StopReason: string(message.StopReason),
		})
	}()

	return eventChan, nil
}
