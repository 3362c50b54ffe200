// internal/analysis/implies.go
package analysis

import (
	"context"

	"github.com/solatis/ruleproof/internal/mip"
	"github.com/solatis/ruleproof/internal/solver"
	"github.com/solatis/ruleproof/internal/types"
)

// IsImpliedBy returns every other rule r in the set such that r holding
// forces the named rule to hold: the program {r, not(name)} is infeasible.
// A non-empty answer means the named rule is redundant. The empty answer
// is a valid result, not an error.
func (e *Engine) IsImpliedBy(ctx context.Context, rs *types.RuleSet, name string) ([]string, error) {
	target, ok := rs.Rule(name)
	if !ok {
		return nil, types.ErrRuleNotFound
	}
	negNF, err := e.negForm(target)
	if err != nil {
		return nil, err
	}
	negated := mip.RuleForm{Name: probeName(rs, "not("+name+")"), Form: negNF}

	var others []string
	for _, n := range rs.Names() {
		if n != name {
			others = append(others, n)
		}
	}

	verdicts, err := e.parallelCheck(ctx, len(others), func(ctx context.Context, i int) (bool, error) {
		forms, err := e.namedForms(rs, []string{others[i]})
		if err != nil {
			return false, err
		}
		res, err := e.solve(ctx, rs, append(forms, negated))
		if err != nil {
			return false, err
		}
		return res.Status == solver.StatusInfeasible, nil
	})
	if err != nil {
		return nil, err
	}

	var implied []string
	for i, yes := range verdicts {
		if yes {
			implied = append(implied, others[i])
		}
	}
	return implied, nil
}
