// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Command llmfeed is a small demo that streams a schema-constrained chat
// completion and prints each field's value the moment it resolves, showing
// the early-exposure behavior pkg/demux gives over a full-object-then-parse
// approach.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/leseb/jsondemux/pkg/demux"
	"github.com/leseb/jsondemux/pkg/llmfeed"
)

func main() {
	baseURL := flag.String("base-url", "", "OpenAI-compatible base URL (empty for the default OpenAI endpoint)")
	apiKey := flag.String("api-key", os.Getenv("LLM_FEED_API_KEY"), "API key")
	model := flag.String("model", "gpt-4o-mini", "model name")
	prompt := flag.String("prompt", "Summarize the plot of a short story about a lighthouse keeper.", "user prompt")
	flag.Parse()

	schema := demux.NewSchema(
		demux.Field{Name: "summary", Sink: demux.Stream, Value: demux.KindString},
		demux.Field{Name: "word_count", Sink: demux.Single, Value: demux.KindInteger},
		demux.Field{Name: "tone", Sink: demux.Single, Value: demux.KindEnumerated,
			Members: []string{"lighthearted", "serious", "melancholic"}},
	)

	target := demux.New(schema)
	client := llmfeed.NewClient(*baseURL, *apiKey)

	ctx := context.Background()
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.StreamInto(ctx, *model, "story_summary", []llmfeed.Message{
			{Role: "user", Content: *prompt},
		}, target)
	}()

	summaryStream, _ := target.Stream("summary")
	iterErr := summaryStream.Iterate(ctx, func(fragment string) error {
		fmt.Print(fragment)
		return nil
	})
	fmt.Println()
	if iterErr != nil {
		fmt.Fprintf(os.Stderr, "summary stream ended with error: %v\n", iterErr)
	}

	wordCountSink, _ := target.Single("word_count")
	if v, err := wordCountSink.Await(ctx); err == nil {
		fmt.Printf("word_count: %v\n", v)
	}

	toneSink, _ := target.Single("tone")
	if v, err := toneSink.Await(ctx); err == nil {
		fmt.Printf("tone: %v\n", v)
	}

	if err := <-errCh; err != nil {
		fmt.Fprintf(os.Stderr, "stream error: %v\n", err)
		os.Exit(1)
	}
}
