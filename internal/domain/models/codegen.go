package models

import "fmt"

// CodeGenType selects the shape of generated output. It is chosen once at
// app creation (by the type router) and stored immutably on the app.
type CodeGenType string

const (
	// CodeGenHTML produces a single self-contained index.html.
	CodeGenHTML CodeGenType = "html"
	// CodeGenMultiFile produces index.html, style.css and script.js.
	CodeGenMultiFile CodeGenType = "multi_file"
	// CodeGenVueProject produces a buildable project tree via tool-driven
	// file writes; deploys serve the built dist directory.
	CodeGenVueProject CodeGenType = "vue_project"
)

// ParseCodeGenType validates a stored or routed layout value.
func ParseCodeGenType(value string) (CodeGenType, error) {
	switch CodeGenType(value) {
	case CodeGenHTML, CodeGenMultiFile, CodeGenVueProject:
		return CodeGenType(value), nil
	default:
		return "", fmt.Errorf("unsupported code generation type %q", value)
	}
}

// CodeArtifact is the structured result of parsing raw generation output.
// Each variant carries the full set of files for its layout; validation of
// required fields happens at save time, before any file is written.
type CodeArtifact interface {
	Layout() CodeGenType
}

// HTMLArtifact is the single-file layout: everything in one HTML payload.
type HTMLArtifact struct {
	HTML string
}

func (a *HTMLArtifact) Layout() CodeGenType { return CodeGenHTML }

// MultiFileArtifact is the three-file layout with independently delimited
// HTML, CSS and JS regions.
type MultiFileArtifact struct {
	HTML string
	CSS  string
	JS   string
}

func (a *MultiFileArtifact) Layout() CodeGenType { return CodeGenMultiFile }
