// Package router decides the cheapest adequate execution path for each
// incoming request: a single deterministic lookup, an inline answer, or a
// budget-bounded workflow invocation.
package router

// Tier identifies one of the three execution paths, ordered from cheapest to
// most expensive. The router evaluates tiers in strict priority order and the
// first match wins, which bounds the worst-case latency distribution.
type Tier string

const (
	// TierFast dispatches a single deterministic lookup; the workflow
	// engine is never touched.
	TierFast Tier = "fast"

	// TierAnswer answers inline from static knowledge, with no side
	// effects and no per-request data fetch.
	TierAnswer Tier = "direct-answer"

	// TierWorkflow invokes a workflow subgraph under a step budget.
	TierWorkflow Tier = "workflow"
)

// Request is the raw incoming request the router classifies.
type Request struct {
	// Text is the request's free-text content.
	Text string

	// Params carries structured parameters accompanying the request.
	Params map[string]any
}

// Profile describes the caller, shaping how generous the step budget is.
type Profile struct {
	// PolicyLevel is the deployment's policy tier. Higher levels admit
	// more optional analysis steps per request.
	PolicyLevel int
}

// Budget bounds which workflow steps a request may run.
//
// MaxCount is a hard ceiling: the planner never selects more than MaxCount
// steps, preferring Required steps, then Optional steps in catalog priority
// order, stopping at the ceiling.
type Budget struct {
	Required []string `json:"required"`
	Optional []string `json:"optional"`
	MaxCount int      `json:"max_count"`
}

// Decision is the router's verdict for one request. It is stateless and
// never persisted beyond the current call.
type Decision struct {
	// Tier is the selected execution path.
	Tier Tier `json:"tier"`

	// Target names the operation (fast tier) or workflow subgraph
	// (workflow tier). Empty for direct answers.
	Target string `json:"target,omitempty"`

	// Params carries extracted operation parameters for the fast tier.
	Params map[string]any `json:"params,omitempty"`

	// DirectAnswer holds the inline answer for the direct-answer tier.
	DirectAnswer string `json:"direct_answer,omitempty"`

	// Budget is the step budget for the workflow tier.
	Budget *Budget `json:"budget,omitempty"`

	// Steps is the planned step selection already respecting Budget:
	// the node set to hand to graph.Fan. Empty with a Reasoning
	// explanation when the budget admits no steps.
	Steps []string `json:"steps,omitempty"`

	// Reasoning is a human-readable explanation of the decision. Always
	// populated; budget-exhausted outcomes propagate their reason here.
	Reasoning string `json:"reasoning"`
}

// Complexity grades how much analysis a request needs.
type Complexity string

const (
	// ComplexitySimple requests need only the core required steps.
	ComplexitySimple Complexity = "simple"

	// ComplexityStandard requests warrant a moderate set of optional
	// steps.
	ComplexityStandard Complexity = "standard"

	// ComplexityDeep requests justify the widest step selection the
	// policy level allows.
	ComplexityDeep Complexity = "deep"
)

// Classification is a classifier's assessment of one request.
type Classification struct {
	Complexity Complexity `json:"complexity"`
	Reasoning  string     `json:"reasoning"`
}

// StepSpec describes one available parallel workflow step.
type StepSpec struct {
	// Name is the step's node ID in the workflow subgraph.
	Name string

	// Priority orders optional steps: lower values are selected first
	// when the budget cannot fit all of them.
	Priority int

	// MinComplexity is the least request complexity at which this step
	// becomes required. Steps above the request's complexity remain
	// optional candidates.
	MinComplexity Complexity
}

// complexityRank orders complexities for comparisons.
func complexityRank(c Complexity) int {
	switch c {
	case ComplexitySimple:
		return 0
	case ComplexityStandard:
		return 1
	case ComplexityDeep:
		return 2
	}
	return 1
}
