// Package anthropic adapts the Anthropic Messages API to the agent.Agent
// capability.
package anthropic

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jsahoo/recall/internal/agent"
)

// Options configures the adapter.
type Options struct {
	Model       anthropic.Model
	MaxTokens   int64
	Temperature float64
	APIKey      string
}

// Agent wraps the Anthropic client behind the agent.Agent interface.
type Agent struct {
	client *anthropic.Client
	name   string
	opts   Options
}

var _ agent.Agent = (*Agent)(nil)

// New creates an Anthropic-backed agent. The API key falls back to the
// client's environment lookup when not set explicitly.
func New(name string, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens:   4096,
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Agent{client: &client, name: name, opts: opts}
}

// Name implements agent.Agent.
func (a *Agent) Name() string { return a.name }

// Invoke sends the prompt as a single user message and returns one assistant
// event carrying the reply's text blocks.
func (a *Agent) Invoke(ctx context.Context, prompt string) ([]agent.Event, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.opts.Model,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: anthropic.Float(a.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic api: %w", err)
	}

	var parts []agent.Part
	for _, block := range resp.Content {
		if block.Type == "text" {
			if text := block.AsText().Text; text != "" {
				parts = append(parts, agent.Part{Text: text})
			}
		}
	}
	if len(parts) == 0 {
		return nil, agent.ErrNoEvents
	}

	return []agent.Event{agent.Message{
		Author:    a.name,
		Timestamp: time.Now().UTC(),
		Content:   &agent.Content{Role: "assistant", Parts: parts},
	}}, nil
}
