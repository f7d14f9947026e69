package router

import (
	"fmt"
	"sort"
)

// BudgetPolicy derives a step budget from a request's complexity and the
// caller's policy level.
type BudgetPolicy struct {
	// Ceilings maps complexity to the hard MaxCount ceiling at policy
	// level zero. Each policy level above zero raises the ceiling by
	// LevelBonus.
	Ceilings map[Complexity]int

	// LevelBonus is the per-level increment applied to the ceiling.
	LevelBonus int
}

// DefaultBudgetPolicy returns the stock policy: simple requests get the core
// steps only, deep requests get the widest selection the level allows.
func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{
		Ceilings: map[Complexity]int{
			ComplexitySimple:   2,
			ComplexityStandard: 4,
			ComplexityDeep:     6,
		},
		LevelBonus: 1,
	}
}

// BudgetFor splits the catalog into required and optional steps for the given
// complexity and sets the MaxCount ceiling for the profile's policy level.
func (p BudgetPolicy) BudgetFor(catalog []StepSpec, prof Profile, c Complexity) Budget {
	ceiling, ok := p.Ceilings[c]
	if !ok {
		ceiling = p.Ceilings[ComplexityStandard]
	}
	if prof.PolicyLevel > 0 {
		ceiling += prof.PolicyLevel * p.LevelBonus
	}

	rank := complexityRank(c)
	var b Budget
	b.MaxCount = ceiling
	for _, step := range byPriority(catalog) {
		if complexityRank(step.MinComplexity) <= rank {
			b.Required = append(b.Required, step.Name)
		} else {
			b.Optional = append(b.Optional, step.Name)
		}
	}
	return b
}

// ApplyBudget plans the concrete step selection under a budget: required
// steps first, then optional steps in budget order, never exceeding
// MaxCount. A budget that admits no steps is a valid outcome; the returned
// reason says why the selection is empty.
func ApplyBudget(b Budget) (steps []string, reason string) {
	if b.MaxCount <= 0 {
		return nil, fmt.Sprintf("budget ceiling is %d: no steps admitted", b.MaxCount)
	}

	for _, name := range b.Required {
		if len(steps) == b.MaxCount {
			reason = fmt.Sprintf(
				"ceiling %d reached before all %d required steps; truncated in priority order",
				b.MaxCount, len(b.Required))
			return steps, reason
		}
		steps = append(steps, name)
	}
	for _, name := range b.Optional {
		if len(steps) == b.MaxCount {
			break
		}
		steps = append(steps, name)
	}

	if len(steps) == 0 {
		return nil, "budget admits steps but catalog offered none"
	}
	return steps, fmt.Sprintf("selected %d of %d admitted steps", len(steps), b.MaxCount)
}

// byPriority returns the catalog sorted by ascending priority, ties broken
// by name so the plan is deterministic across runs.
func byPriority(catalog []StepSpec) []StepSpec {
	out := make([]StepSpec, len(catalog))
	copy(out, catalog)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}
