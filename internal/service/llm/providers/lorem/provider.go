package lorem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	domainllm "appforge/internal/domain/services/llm"
)

// Provider is a mock generation backend that produces placeholder pages.
// Used for development and tests without requiring real API keys. It emits
// syntactically valid fenced output so the downstream parse/save pipeline
// exercises its real code paths.
type Provider struct {
	generator  *loremgen.Lorem
	chunkDelay time.Duration
}

// NewProvider creates a new lorem provider.
func NewProvider() *Provider {
	return &Provider{
		generator:  loremgen.New(),
		chunkDelay: 5 * time.Millisecond,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// Generate returns a complete mock response. Routing requests (recognized
// by their classification prompt) always answer "html".
func (p *Provider) Generate(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := p.responseText(req)
	return &domainllm.GenerateResponse{
		Text:         text,
		Model:        req.Model,
		InputTokens:  estimateTokens(req.Messages),
		OutputTokens: len(strings.Fields(text)),
		StopReason:   "end_turn",
	}, nil
}

// Stream emits the mock response in word-sized chunks. When tools are
// requested it emits file-write invocations instead, imitating the
// project-generation loop.
func (p *Provider) Stream(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	eventChan := make(chan domainllm.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		send := func(event domainllm.StreamEvent) bool {
			select {
			case <-ctx.Done():
				return false
			case eventChan <- event:
				return true
			}
		}

		if len(req.Tools) > 0 {
			p.streamToolCalls(send)
			return
		}

		text := p.responseText(req)
		words := strings.SplitAfter(text, " ")
		for _, word := range words {
			if !send(domainllm.StreamEvent{Type: domainllm.EventText, Text: word}) {
				return
			}
			time.Sleep(p.chunkDelay)
		}

		send(domainllm.StreamEvent{Type: domainllm.EventDone, StopReason: "end_turn"})
	}()

	return eventChan, nil
}

// streamToolCalls emits a minimal set of project file writes and finishes.
func (p *Provider) streamToolCalls(send func(domainllm.StreamEvent) bool) {
	files := []struct {
		path    string
		content string
	}{
		{"package.json", `{"name":"mock-app","scripts":{"build":"vite build"}}`},
		{"index.html", "<!DOCTYPE html><html><body><div id=\"app\"></div></body></html>"},
		{"src/main.js", "console.log('" + p.generator.Sentence(3, 6) + "');"},
	}

	for i, file := range files {
		input, _ := json.Marshal(map[string]string{
			"path":    file.path,
			"content": file.content,
		})
		ok := send(domainllm.StreamEvent{
			Type: domainllm.EventToolUse,
			ToolUse: &domainllm.ToolUse{
				ID:    fmt.Sprintf("toolu_mock_%d", i),
				Name:  "write_file",
				Input: input,
			},
		})
		if !ok {
			return
		}
	}

	send(domainllm.StreamEvent{Type: domainllm.EventDone, StopReason: "end_turn"})
}

// responseText fabricates fenced output matching what the last system
// prompt asked for, so parsers downstream find the expected structure.
func (p *Provider) responseText(req *domainllm.GenerateRequest) string {
	system := strings.ToLower(req.System)

	switch {
	case strings.Contains(system, "classify"):
		return "html"
	case strings.Contains(system, "three fenced code blocks"):
		return fmt.Sprintf(
			"```html\n<!DOCTYPE html>\n<html><head><title>%s</title><link rel=\"stylesheet\" href=\"./style.css\"></head>"+
				"<body><h1>%s</h1><p>%s</p><script src=\"./script.js\"></script></body></html>\n```\n\n"+
				"```css\nbody { font-family: sans-serif; margin: 2rem; }\n```\n\n"+
				"```js\ndocument.title = '%s';\n```\n",
			p.generator.Word(2, 5),
			p.generator.Sentence(2, 5),
			p.generator.Paragraph(2, 4),
			p.generator.Word(2, 5),
		)
	default:
		return fmt.Sprintf(
			"```html\n<!DOCTYPE html>\n<html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>\n```\n",
			p.generator.Word(2, 5),
			p.generator.Sentence(2, 5),
			p.generator.Paragraph(2, 4),
		)
	}
}

// estimateTokens gives a rough word-count proxy for input size.
func estimateTokens(messages []domainllm.Message) int {
	total := 0
	for _, msg := range messages {
		for _, block := range msg.Blocks {
			total += len(strings.Fields(block.Text))
		}
	}
	return total
}
