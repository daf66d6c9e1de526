package prompts

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"appforge/internal/domain/models"
)

//go:embed config/*.yaml
var configFiles embed.FS

// LayoutPrompt holds the generation prompt material for one code layout.
type LayoutPrompt struct {
	System string `yaml:"system"`
}

// promptFile is the on-disk shape of a prompt config file.
type promptFile struct {
	Layouts map[string]LayoutPrompt `yaml:"layouts"`
	Routing LayoutPrompt            `yaml:"routing"`
}

// Registry manages the system prompts used for code generation and for
// one-shot layout routing. Prompts are loaded once from embedded YAML.
type Registry struct {
	layouts map[models.CodeGenType]LayoutPrompt
	routing LayoutPrompt
	mu      sync.RWMutex
}

// NewRegistry creates a new prompt registry and loads embedded YAML files
func NewRegistry() (*Registry, error) {
	r := &Registry{
		layouts: make(map[models.CodeGenType]LayoutPrompt),
	}

	if err := r.loadFile("codegen"); err != nil {
		return nil, fmt.Errorf("failed to load codegen prompts: %w", err)
	}

	return r, nil
}

// loadFile loads one embedded prompt YAML file into the registry
func (r *Registry) loadFile(name string) error {
	filename := fmt.Sprintf("config/%s.yaml", name)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for layout, prompt := range file.Layouts {
		codeGenType, err := models.ParseCodeGenType(layout)
		if err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		if prompt.System == "" {
			return fmt.Errorf("%s: empty system prompt for layout %q", filename, layout)
		}
		r.layouts[codeGenType] = prompt
	}

	if file.Routing.System != "" {
		r.routing = file.Routing
	}

	return nil
}

// SystemPrompt returns the generation system prompt for a code layout
func (r *Registry) SystemPrompt(layout models.CodeGenType) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prompt, ok := r.layouts[layout]
	if !ok {
		return "", fmt.Errorf("no system prompt for layout %q", layout)
	}
	return prompt.System, nil
}

// RoutingPrompt returns the system prompt for one-shot layout classification
func (r *Registry) RoutingPrompt() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.routing.System == "" {
		return "", fmt.Errorf("routing prompt not configured")
	}
	return r.routing.System, nil
}
