// internal/analysis/substitute.go
package analysis

import (
	"errors"

	"github.com/solatis/ruleproof/internal/rules"
	"github.com/solatis/ruleproof/internal/types"
)

// SubstituteValues fixes variables to the given raw values and returns the
// rewritten set. Clauses over bound variables fold away; a rule that folds
// to false stays in the set as an explicit always-false marker, and a rule
// that folds to true stays as an always-true marker, so nothing silently
// vanishes. Rules the bindings do not touch are shared with the input set.
//
// This is a pure rewrite: no solver call is involved.
func (e *Engine) SubstituteValues(rs *types.RuleSet, raw map[string]any) (*types.RuleSet, error) {
	b, err := rules.CoerceBindings(rs, raw)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return rs, nil
	}

	rewritten := make([]*types.Rule, 0, rs.Len())
	for _, r := range rs.Rules() {
		folded := rules.SubstituteExpr(r.Expr, b)
		if folded == r.Expr {
			rewritten = append(rewritten, r)
			continue
		}
		nr, err := types.NewRule(r.Name, folded)
		if err != nil {
			return nil, err
		}
		rewritten = append(rewritten, nr)
	}

	out, errs := types.NewRuleSet(rewritten, rs.Options())
	if len(errs) > 0 {
		// Substitution only removes variable uses, so a valid input set
		// cannot produce definition errors; surface them if it somehow
		// does rather than returning a partial set.
		return nil, errors.Join(errs...)
	}
	return out, nil
}
