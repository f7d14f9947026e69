// Package openai provides a router.Classifier backed by OpenAI chat models.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/advisorhq/stateflow/router"
)

const classifyPrompt = `Grade the complexity of the following request as exactly one of:
"simple", "standard", "deep".

Respond ONLY with valid JSON, no markdown:
{"complexity": "<grade>", "reasoning": "<one sentence>"}

Request:
%s`

// Classifier grades request complexity with a single chat completion per
// request, using JSON response format so parsing stays deterministic.
type Classifier struct {
	client *openai.Client
	model  string
}

// New creates a classifier using the given API key and model.
func New(apiKey, model string) (*Classifier, error) {
	if apiKey == "" {
		return nil, errors.New("API key cannot be empty")
	}
	if model == "" {
		return nil, errors.New("model cannot be empty")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Classifier{
		client: &client,
		model:  model,
	}, nil
}

func (c *Classifier) Classify(ctx context.Context, req router.Request) (router.Classification, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(fmt.Sprintf(classifyPrompt, req.Text)),
					},
				},
			},
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: openai.Ptr(shared.NewResponseFormatJSONObjectParam()),
		},
		Temperature: openai.Float(1.0),
	})
	if err != nil {
		return router.Classification{}, fmt.Errorf("openai classify: %w", err)
	}
	if len(completion.Choices) == 0 {
		return router.Classification{}, errors.New("openai classify: empty response")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw struct {
		Complexity string `json:"complexity"`
		Reasoning  string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return router.Classification{}, fmt.Errorf("parse classifier response: %w", err)
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
