// Package llm implements the optional AI collaborators of the pipeline:
// intent extraction, requirement extraction, follow-up parsing, text
// embeddings and conversational summaries. Every caller has a deterministic
// fallback; an unavailable collaborator degrades quality, never availability.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultChatModel      = openai.GPT4oMini
	defaultEmbeddingModel = openai.SmallEmbedding3
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("llm: api key not configured")

// TextCompleter is the minimal completion contract the extractors need.
type TextCompleter interface {
	// CompleteJSON sends a system+user message pair and returns the raw
	// completion text, with the model instructed to emit a JSON object.
	CompleteJSON(ctx context.Context, system, user string, temperature float32) (string, error)

	// Complete sends a system+user message pair and returns plain text.
	Complete(ctx context.Context, system, user string, temperature float32) (string, error)
}

// Client wraps the OpenAI API behind the TextCompleter contract.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient builds a Client. An empty apiKey yields a client whose calls
// fail with ErrNotConfigured, which callers treat as "collaborator absent".
func NewClient(apiKey string) *Client {
	c := &Client{model: defaultChatModel}
	if apiKey != "" {
		c.api = openai.NewClient(apiKey)
	}
	return c
}

// CompleteJSON implements TextCompleter with JSON-object response format.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, temperature float32) (string, error) {
	return c.complete(ctx, system, user, temperature, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

// Complete implements TextCompleter for free-form text.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	return c.complete(ctx, system, user, temperature, nil)
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float32, format *openai.ChatCompletionResponseFormat) (string, error) {
	if c.api == nil {
		return "", ErrNotConfigured
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   800,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("llm completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
