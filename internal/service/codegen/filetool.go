package codegen

import (
	"encoding/json"
	"fmt"

	domainllm "appforge/internal/domain/services/llm"
)

// writeFileToolName is the single tool exposed to the model during
// project-style generation. Each invocation is one structured file-write
// instruction routed directly to the materializer.
const writeFileToolName = "write_file"

// writeFileInput is the expected tool input payload.
type writeFileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// writeFileToolDefinition describes the file-write tool to the provider.
func writeFileToolDefinition() domainllm.ToolDefinition {
	return domainllm.ToolDefinition{
		Name:        writeFileToolName,
		Description: "Create or fully replace one file in the generated project. Paths are relative to the project root.",
		Properties: map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Relative file path, e.g. src/App.vue",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Complete file content",
			},
		},
		Required: []string{"path", "content"},
	}
}

// parseWriteFileInput decodes and checks a write_file invocation's input.
func parseWriteFileInput(input json.RawMessage) (*writeFileInput, error) {
	var parsed writeFileInput
	if err := json.Unmarshal(input, &parsed); err != nil {
		return nil, fmt.Errorf("malformed write_file input: %w", err)
	}
	if parsed.Path == "" {
		return nil, fmt.Errorf("write_file input is missing path")
	}
	return &parsed, nil
}
