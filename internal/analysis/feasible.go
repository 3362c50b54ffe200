// internal/analysis/feasible.go
package analysis

import (
	"context"

	"github.com/solatis/ruleproof/internal/types"
)

// IsInfeasible reports whether the rule set admits no assignment at all.
// The empty set is vacuously feasible.
func (e *Engine) IsInfeasible(ctx context.Context, rs *types.RuleSet) (bool, error) {
	if rs.Len() == 0 {
		return false, nil
	}
	ok, err := e.feasibleSubset(ctx, rs, rs.Names())
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// DetectInfeasibleRules localizes an infeasibility: it returns the first
// single rule, in declaration order, whose removal restores feasibility.
// When no single removal suffices it tries pairs in declaration order. A
// feasible set yields an empty answer; an infeasible set where neither
// singles nor pairs help fails with ErrLocalizationFailed.
func (e *Engine) DetectInfeasibleRules(ctx context.Context, rs *types.RuleSet) ([]string, error) {
	infeasible, err := e.IsInfeasible(ctx, rs)
	if err != nil {
		return nil, err
	}
	if !infeasible {
		return nil, nil
	}

	names := rs.Names()

	// Singles: drop one rule at a time.
	verdicts, err := e.parallelCheck(ctx, len(names), func(ctx context.Context, i int) (bool, error) {
		remainder := rs.Without(names[i])
		return e.feasibleSubset(ctx, remainder, remainder.Names())
	})
	if err != nil {
		return nil, err
	}
	for i, restored := range verdicts {
		if restored {
			return []string{names[i]}, nil
		}
	}

	// Pairs: drop two rules at a time, first-declared pairs first.
	type pair struct{ i, j int }
	var pairs []pair
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			pairs = append(pairs, pair{i, j})
		}
	}
	verdicts, err = e.parallelCheck(ctx, len(pairs), func(ctx context.Context, k int) (bool, error) {
		remainder := rs.Without(names[pairs[k].i], names[pairs[k].j])
		return e.feasibleSubset(ctx, remainder, remainder.Names())
	})
	if err != nil {
		return nil, err
	}
	for k, restored := range verdicts {
		if restored {
			return []string{names[pairs[k].i], names[pairs[k].j]}, nil
		}
	}

	return nil, types.ErrLocalizationFailed
}
