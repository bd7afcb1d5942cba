// Package llm calls the external text generation provider.
package llm

import "context"

// Prompt is the full context sent to the provider.
type Prompt struct {
	System string
	User   string
}

// Generator produces text from a prompt. Calls may block on the network
// and must honor ctx.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}
