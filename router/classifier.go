package router

import (
	"context"
	"strconv"
	"strings"
)

// Classifier grades a request's complexity. Implementations range from the
// in-process heuristic below to LLM-backed classifiers in router/classify.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Classification, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, req Request) (Classification, error)

func (f ClassifierFunc) Classify(ctx context.Context, req Request) (Classification, error) {
	return f(ctx, req)
}

// HeuristicClassifier grades complexity from surface features of the request
// text. It is the zero-dependency fallback when no model-backed classifier is
// configured, and the deterministic choice for tests.
type HeuristicClassifier struct {
	// DeepMarkers escalate a request to deep complexity when present.
	DeepMarkers []string

	// SimpleMarkers cap a short request at simple complexity.
	SimpleMarkers []string
}

// NewHeuristicClassifier returns a classifier with the default marker sets.
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{
		DeepMarkers: []string{
			"compare", "versus", " vs ", "trade-off", "tradeoff",
			"in depth", "comprehensive", "full analysis", "deep dive",
		},
		SimpleMarkers: []string{
			"what is", "how much", "when", "status", "lookup",
		},
	}
}

func (h *HeuristicClassifier) Classify(_ context.Context, req Request) (Classification, error) {
	text := strings.ToLower(req.Text)
	for _, m := range h.DeepMarkers {
		if strings.Contains(text, m) {
			return Classification{
				Complexity: ComplexityDeep,
				Reasoning:  "matched deep marker " + strconv.Quote(m),
			}, nil
		}
	}
	if len(text) < 120 {
		for _, m := range h.SimpleMarkers {
			if strings.Contains(text, m) {
				return Classification{
					Complexity: ComplexitySimple,
					Reasoning:  "short request matched simple marker " + strconv.Quote(m),
				}, nil
			}
		}
	}
	return Classification{
		Complexity: ComplexityStandard,
		Reasoning:  "no complexity markers matched",
	}, nil
}
