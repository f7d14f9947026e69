package router

import (
	"context"
	"fmt"
)

// Router evaluates the three tiers in strict priority order: dispatch rules,
// then answer rules, then classification plus budget planning. The first
// matching tier wins.
type Router struct {
	dispatch   []compiledDispatch
	answers    []compiledAnswer
	classifier Classifier
	policy     BudgetPolicy
	catalog    []StepSpec
	workflow   string
}

// RouterOption configures a Router.
type RouterOption func(*Router) error

// WithDispatchRules installs the fast-tier dispatch rules, evaluated in the
// given order.
func WithDispatchRules(rules ...DispatchRule) RouterOption {
	return func(r *Router) error {
		for _, rule := range rules {
			prog, err := compileRule(rule.Name, rule.When)
			if err != nil {
				return err
			}
			r.dispatch = append(r.dispatch, compiledDispatch{rule: rule, prog: prog})
		}
		return nil
	}
}

// WithAnswerRules installs the direct-answer rules, evaluated in the given
// order after all dispatch rules have been tried.
func WithAnswerRules(rules ...AnswerRule) RouterOption {
	return func(r *Router) error {
		for _, rule := range rules {
			prog, err := compileRule(rule.Name, rule.When)
			if err != nil {
				return err
			}
			r.answers = append(r.answers, compiledAnswer{rule: rule, prog: prog})
		}
		return nil
	}
}

// WithClassifier replaces the default heuristic classifier.
func WithClassifier(c Classifier) RouterOption {
	return func(r *Router) error {
		if c == nil {
			return fmt.Errorf("router: nil classifier")
		}
		r.classifier = c
		return nil
	}
}

// WithBudgetPolicy replaces the default budget policy.
func WithBudgetPolicy(p BudgetPolicy) RouterOption {
	return func(r *Router) error {
		r.policy = p
		return nil
	}
}

// New builds a Router targeting the named workflow subgraph with the given
// step catalog.
func New(workflow string, catalog []StepSpec, opts ...RouterOption) (*Router, error) {
	if workflow == "" {
		return nil, fmt.Errorf("router: empty workflow target")
	}
	r := &Router{
		classifier: NewHeuristicClassifier(),
		policy:     DefaultBudgetPolicy(),
		catalog:    catalog,
		workflow:   workflow,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Route decides the execution path for one request. Only classifier failures
// surface as errors; rule evaluation errors are treated as non-matches.
func (r *Router) Route(ctx context.Context, req Request, prof Profile) (Decision, error) {
	env := ruleEnv{Text: req.Text, Params: req.Params, Level: prof.PolicyLevel}

	for _, d := range r.dispatch {
		if matches(d.prog, env) {
			return Decision{
				Tier:      TierFast,
				Target:    d.rule.Operation,
				Params:    req.Params,
				Reasoning: fmt.Sprintf("dispatch rule %q matched", d.rule.Name),
			}, nil
		}
	}

	for _, a := range r.answers {
		if matches(a.prog, env) {
			return Decision{
				Tier:         TierAnswer,
				DirectAnswer: a.rule.Answer,
				Reasoning:    fmt.Sprintf("answer rule %q matched", a.rule.Name),
			}, nil
		}
	}

	cls, err := r.classifier.Classify(ctx, req)
	if err != nil {
		return Decision{}, fmt.Errorf("router: classify: %w", err)
	}

	budget := r.policy.BudgetFor(r.catalog, prof, cls.Complexity)
	steps, reason := ApplyBudget(budget)
	return Decision{
		Tier:      TierWorkflow,
		Target:    r.workflow,
		Budget:    &budget,
		Steps:     steps,
		Reasoning: fmt.Sprintf("%s complexity (%s); %s", cls.Complexity, cls.Reasoning, reason),
	}, nil
}
