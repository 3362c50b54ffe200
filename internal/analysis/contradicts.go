// internal/analysis/contradicts.go
package analysis

import (
	"context"

	"github.com/solatis/ruleproof/internal/types"
)

// IsContradictedBy returns every other rule r in the set such that the
// named rule and r together are infeasible while r on its own is feasible.
// Candidates that are infeasible alone are filtered out: the conflict is
// theirs, not the pair's. The named rule itself is not filtered, so a rule
// no assignment can satisfy is reported as contradicted by every sound
// rule, which is the honest answer.
func (e *Engine) IsContradictedBy(ctx context.Context, rs *types.RuleSet, name string) ([]string, error) {
	if _, ok := rs.Rule(name); !ok {
		return nil, types.ErrRuleNotFound
	}

	var others []string
	for _, n := range rs.Names() {
		if n != name {
			others = append(others, n)
		}
	}

	verdicts, err := e.parallelCheck(ctx, len(others), func(ctx context.Context, i int) (bool, error) {
		other := others[i]
		alone, err := e.feasibleSubset(ctx, rs, []string{other})
		if err != nil {
			return false, err
		}
		if !alone {
			return false, nil
		}
		together, err := e.feasibleSubset(ctx, rs, []string{name, other})
		if err != nil {
			return false, err
		}
		return !together, nil
	})
	if err != nil {
		return nil, err
	}

	var contradicted []string
	for i, yes := range verdicts {
		if yes {
			contradicted = append(contradicted, others[i])
		}
	}
	return contradicted, nil
}
