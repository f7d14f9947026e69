// Package anthropic provides a router.Classifier backed by Anthropic's
// Claude models.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/advisorhq/stateflow/router"
)

const classifyPrompt = `Grade the complexity of the following request as exactly one of:
"simple", "standard", "deep".

Respond with a JSON object only, no prose:
{"complexity": "<grade>", "reasoning": "<one sentence>"}

Request:
%s`

// Classifier grades request complexity with a single Claude call per
// request. Safe for concurrent use after creation.
type Classifier struct {
	client *anthropic.Client
	model  string
}

// New creates a classifier using the given API key and model. Fast, cheap
// models (the haiku family) are the sensible default here since the grade
// only sizes a step budget.
func New(apiKey, model string) *Classifier {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Classifier{
		client: &client,
		model:  model,
	}
}

// Classify sends the request text to Claude and parses the JSON grade from
// the response.
func (c *Classifier) Classify(ctx context.Context, req router.Request) (router.Classification, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf(classifyPrompt, req.Text))),
		},
	})
	if err != nil {
		return router.Classification{}, fmt.Errorf("anthropic classify: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return parseClassification(text)
}

// parseClassification extracts the grade object, tolerating prose around the
// JSON the way models sometimes produce it.
func parseClassification(text string) (router.Classification, error) {
	var raw struct {
		Complexity string `json:"complexity"`
		Reasoning  string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start == -1 || end == -1 || start >= end {
			return router.Classification{}, fmt.Errorf("no JSON object in classifier response")
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
			return router.Classification{}, fmt.Errorf("parse classifier response: %w", err)
		}
	}

	switch router.Complexity(raw.Complexity) {
	case router.ComplexitySimple, router.ComplexityStandard, router.ComplexityDeep:
	default:
		return router.Classification{}, fmt.Errorf("unknown complexity grade %q", raw.Complexity)
	}
	return router.Classification{
		Complexity: router.Complexity(raw.Complexity),
		Reasoning:  raw.Reasoning,
	}, nil
}
