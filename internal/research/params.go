// Package research turns research parameters into an AI-generated HTML
// report via the xAI Responses API.
package research

import "context"

// Research modes.
const (
	ModeSearch  = "search"
	ModeTopic   = "topic"
	ModeAccount = "account"
	ModeAsk     = "ask"
)

// Params is the research request. Mode decides which of the remaining
// fields matter.
type Params struct {
	Mode     string `json:"mode"`
	Query    string `json:"query,omitempty"`
	Handle   string `json:"handle,omitempty"`
	Side1    string `json:"side1,omitempty"`
	Side2    string `json:"side2,omitempty"`
	Topics   string `json:"topics,omitempty"`
	Question string `json:"question,omitempty"`
}

// Generator produces an HTML report for the given parameters.
type Generator interface {
	Generate(ctx context.Context, params Params) (string, error)
}
