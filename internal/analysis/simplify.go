// internal/analysis/simplify.go
package analysis

import (
	"context"

	"github.com/solatis/ruleproof/internal/mip"
	"github.com/solatis/ruleproof/internal/rules"
	"github.com/solatis/ruleproof/internal/solver"
	"github.com/solatis/ruleproof/internal/types"
)

/*
 * Fixed-point simplification.
 *
 * SimplifyRules removes redundant rules: any rule some other rule implies
 * contributes nothing to the feasible region. One rule is removed per
 * scan, scanning latest-declared first so that of two equivalent rules the
 * earlier declaration survives, then the set is re-scanned until nothing
 * changes.
 *
 * SimplifyConditionals rewrites conditional rules against the rest of the
 * set: an antecedent the others make impossible leaves a vacuous rule, an
 * antecedent the others force reduces the rule to its consequent, and a
 * consequent the others decide settles the rule likewise.
 *
 * Both iterate to a fixed point capped at the rule count. Hitting the cap
 * while still changing surfaces ErrSimplifyNotConverged instead of
 * looping on a cyclic redundancy structure.
 */

// SimplifyRules substitutes the given values (if any) and then removes
// redundant rules until a fixed point is reached.
func (e *Engine) SimplifyRules(ctx context.Context, rs *types.RuleSet, raw map[string]any) (*types.RuleSet, error) {
	cur := rs
	if len(raw) > 0 {
		var err error
		cur, err = e.SubstituteValues(rs, raw)
		if err != nil {
			return nil, err
		}
	}
	if cur.Len() == 0 {
		return cur, nil
	}

	// The cap is fixed up front: at most len-1 removals can happen and the
	// final scan confirms the fixed point.
	limit := cur.Len() + 1
	for iter := 0; iter < limit; iter++ {
		removed, err := e.removeOneRedundant(ctx, cur)
		if err != nil {
			return nil, err
		}
		if removed == nil {
			return cur, nil
		}
		cur = removed
	}
	return nil, types.ErrSimplifyNotConverged
}

// removeOneRedundant returns the set with the first redundant rule removed,
// or nil if no rule is redundant. The scan runs latest-declared first.
func (e *Engine) removeOneRedundant(ctx context.Context, rs *types.RuleSet) (*types.RuleSet, error) {
	names := rs.Names()
	for i := len(names) - 1; i >= 0; i-- {
		implied, err := e.IsImpliedBy(ctx, rs, names[i])
		if err != nil {
			return nil, err
		}
		if len(implied) > 0 {
			return rs.Without(names[i]), nil
		}
	}
	return nil, nil
}

// SimplifyConditionals rewrites every top-level conditional rule that the
// rest of the set already decides, iterating until no rewrite applies.
func (e *Engine) SimplifyConditionals(ctx context.Context, rs *types.RuleSet) (*types.RuleSet, error) {
	cur := rs
	if cur.Len() == 0 {
		return cur, nil
	}

	for iter := 0; iter < cur.Len()+1; iter++ {
		next, err := e.rewriteOneConditional(ctx, cur)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return cur, nil
		}
		cur = next
	}
	return nil, types.ErrSimplifyNotConverged
}

// rewriteOneConditional rewrites the first conditional rule the other
// rules decide, or returns nil when none changes.
func (e *Engine) rewriteOneConditional(ctx context.Context, rs *types.RuleSet) (*types.RuleSet, error) {
	for _, name := range rs.Names() {
		r, _ := rs.Rule(name)
		cond, ok := r.Expr.(*types.Conditional)
		if !ok {
			continue
		}

		rewritten, changed, err := e.decideConditional(ctx, rs, name, cond)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}
		return replaceRule(rs, name, rewritten)
	}
	return nil, nil
}

// decideConditional checks the four ways the rest of the set can settle an
// "if A then B" rule:
//
//	A impossible        -> true (the rule can never fire)
//	A forced            -> B (the antecedent is a given)
//	B impossible        -> not A (firing would be fatal)
//	B forced            -> true (the consequent is a given)
func (e *Engine) decideConditional(ctx context.Context, rs *types.RuleSet, name string, cond *types.Conditional) (types.Expr, bool, error) {
	rest := rs.Without(name)
	restForms, err := e.namedForms(rest, rest.Names())
	if err != nil {
		return nil, false, err
	}

	probe := probeName(rs, "when("+name+")")
	infeasibleWith := func(x types.Expr) (bool, error) {
		nf, err := rules.NormalizeExpr(x)
		if err != nil {
			return false, attachNegName(err, name)
		}
		forms := append(append([]mip.RuleForm(nil), restForms...), mip.RuleForm{Name: probe, Form: nf})
		res, err := e.solve(ctx, rs, forms)
		if err != nil {
			return false, err
		}
		return res.Status == solver.StatusInfeasible, nil
	}

	if dead, err := infeasibleWith(cond.If); err != nil {
		return nil, false, err
	} else if dead {
		return &types.BoolLit{Value: true}, true, nil
	}
	if forced, err := infeasibleWith(rules.NegateExpr(cond.If)); err != nil {
		return nil, false, err
	} else if forced {
		return cond.Then, true, nil
	}
	if dead, err := infeasibleWith(cond.Then); err != nil {
		return nil, false, err
	} else if dead {
		return rules.NegateExpr(cond.If), true, nil
	}
	if forced, err := infeasibleWith(rules.NegateExpr(cond.Then)); err != nil {
		return nil, false, err
	} else if forced {
		return &types.BoolLit{Value: true}, true, nil
	}
	return nil, false, nil
}

// replaceRule swaps one rule's expression, keeping declaration order.
func replaceRule(rs *types.RuleSet, name string, expr types.Expr) (*types.RuleSet, error) {
	replacement, err := types.NewRule(name, expr)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Rule, 0, rs.Len())
	for _, r := range rs.Rules() {
		if r.Name == name {
			out = append(out, replacement)
			continue
		}
		out = append(out, r)
	}
	next, errs := types.NewRuleSet(out, rs.Options())
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return next, nil
}
