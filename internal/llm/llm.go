// Package llm talks to a chat completion model.
package llm

import "context"

// Request is one single-turn completion request.
type Request struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Response carries the raw model text. Callers extract SQL from it.
type Response struct {
	Text  string
	Model string
}

// Completer turns a prompt into text. Implementations must honour ctx
// cancellation.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
