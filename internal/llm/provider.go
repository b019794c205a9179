// Package llm wraps the completion providers used to write explanations.
// Every provider returns schema-validated JSON; callers decode it.
package llm

import (
	"context"
	"encoding/json"
)

// Provider produces one structured completion per call.
type Provider interface {
	// Generate sends a single-turn prompt and returns the provider's JSON
	// output. When req.Schema is set the output has already been validated
	// against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the model identifier used in cache keys and audit rows.
	ModelID() string
}

// Request is a single-turn completion request.
type Request struct {
	System string
	Prompt string

	// Schema, when set, switches the provider to its native structured
	// output mode.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Schema names a JSON Schema definition.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the provider output.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string // end | max_tokens
}

// Usage is token accounting for one request. Zero when the provider does not
// report it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// resolveModel maps a friendly model name to a provider model id. Unknown
// names pass through unchanged.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
