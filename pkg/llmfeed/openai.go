// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package llmfeed drives a demux.Demux from a streaming chat completion,
// requesting a JSON-schema response format that mirrors the session's
// declared schema and feeding each content delta's characters into the
// demux as they arrive over the wire.
package llmfeed

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/leseb/jsondemux/pkg/demux"
)

// Message is a minimal chat message: just enough to drive a schema-constrained
// completion, not a general-purpose chat API surface.
type Message struct {
	Role    string
	Content string
}

// Client streams schema-constrained chat completions into a demux.Demux.
// The base URL and API key follow the same OpenAI-compatible-backend
// convention as Ollama/vLLM: an empty API key falls back to a dummy value
// since local backends typically don't check it.
type Client struct {
	sdk openai.Client
}

// NewClient creates a Client. baseURL may be empty to use the default
// OpenAI endpoint, or set to point at an OpenAI-compatible backend.
func NewClient(baseURL, apiKey string) *Client {
	opts := []option.RequestOption{}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		opts = append(opts, option.WithAPIKey("dummy"))
	}
	return &Client{sdk: openai.NewClient(opts...)}
}

func convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			result = append(result, openai.SystemMessage(msg.Content))
		case "assistant":
			result = append(result, openai.AssistantMessage(msg.Content))
		case "developer":
			result = append(result, openai.DeveloperMessage(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}

// StreamInto requests a streaming chat completion constrained to
// schemaName's JSON Schema representation and feeds every content delta's
// characters into target as they arrive. It returns once the stream ends,
// target is aborted, or ctx is canceled.
func (c *Client) StreamInto(ctx context.Context, model, schemaName string, messages []Message, target *demux.Demux) error {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: convertMessages(messages),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: responseFormatSchema(target.Schema()),
					Strict: openai.Bool(true),
				},
			},
		},
	}

	stream := c.sdk.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := target.Feed(choice.Delta.Content); err != nil {
				target.Abort(err)
				return fmt.Errorf("feed delta: %w", err)
			}
		}
		select {
		case <-ctx.Done():
			target.Abort(ctx.Err())
			return ctx.Err()
		default:
		}
	}

	if err := stream.Err(); err != nil {
		target.Abort(err)
		return fmt.Errorf("chat completion stream: %w", err)
	}

	return nil
}
