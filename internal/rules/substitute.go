// internal/rules/substitute.go
package rules

import (
	"slices"

	"github.com/solatis/ruleproof/internal/types"
)

/*
 * Variable substitution.
 *
 * Rewrites an expression against a set of bindings: bound variables in
 * linear clauses fold into the constant side, bound categorical variables
 * decide their membership clauses outright. Connectives fold as truth
 * values surface, so a fully bound expression reduces to a single BoolLit.
 *
 * The always-false case is deliberately kept as an explicit marker rather
 * than dropped: a rule that substitution proves unsatisfiable must stay
 * visible to the caller.
 *
 * Comparisons here are exact float comparisons. Substitution is arithmetic
 * over given values, not a solver query; the feasibility tolerance does not
 * apply.
 */

// SubstituteExpr folds bindings into the expression. Variables without a
// binding are left in place. The input is never mutated; untouched subtrees
// are shared with the result.
func SubstituteExpr(e types.Expr, b Bindings) types.Expr {
	if len(b) == 0 {
		return e
	}
	return substitute(e, b)
}

func substitute(e types.Expr, b Bindings) types.Expr {
	switch n := e.(type) {
	case *types.BoolLit:
		return n

	case *types.Comparison:
		return substituteComparison(n, b)

	case *types.Membership:
		v, ok := b[n.Var]
		if !ok {
			return n
		}
		present := slices.Contains(n.Labels, v.Label)
		return &types.BoolLit{Value: present != n.Excluded}

	case *types.Not:
		x := substitute(n.X, b)
		if lit, ok := x.(*types.BoolLit); ok {
			return &types.BoolLit{Value: !lit.Value}
		}
		if x == n.X {
			return n
		}
		return &types.Not{X: x}

	case *types.And:
		xs, decided, value := substituteJunction(n.Xs, b, false)
		if decided {
			return &types.BoolLit{Value: value}
		}
		if xs == nil {
			return n
		}
		if len(xs) == 1 {
			return xs[0]
		}
		return &types.And{Xs: xs}

	case *types.Or:
		xs, decided, value := substituteJunction(n.Xs, b, true)
		if decided {
			return &types.BoolLit{Value: value}
		}
		if xs == nil {
			return n
		}
		if len(xs) == 1 {
			return xs[0]
		}
		return &types.Or{Xs: xs}

	case *types.Conditional:
		return substituteConditional(n, b)

	default:
		return e
	}
}

// substituteComparison folds bound variables into the constant side:
// sum(a_i * x_i) rel c becomes sum over unbound terms rel c - sum(a_i * v_i).
// A comparison with no unbound terms left collapses to its truth value.
func substituteComparison(c *types.Comparison, b Bindings) types.Expr {
	bound := 0.0
	anyBound := false
	remaining := make([]types.LinTerm, 0, len(c.Terms))
	for _, t := range c.Terms {
		if v, ok := b[t.Var]; ok {
			bound += t.Coef * v.Number
			anyBound = true
			continue
		}
		remaining = append(remaining, t)
	}
	if !anyBound {
		return c
	}
	if len(remaining) == 0 {
		return &types.BoolLit{Value: compareConst(bound, c.Rel, c.Const)}
	}
	return &types.Comparison{Terms: remaining, Rel: c.Rel, Const: c.Const - bound}
}

// substituteJunction substitutes each operand and short-circuits on the
// absorbing literal (true for disjunction, false for conjunction). Returns
// (nil, false, _) when nothing changed, letting the caller share the node.
func substituteJunction(xs []types.Expr, b Bindings, disjunction bool) ([]types.Expr, bool, bool) {
	out := make([]types.Expr, 0, len(xs))
	changed := false
	for _, x := range xs {
		sub := substitute(x, b)
		if sub != x {
			changed = true
		}
		if lit, ok := sub.(*types.BoolLit); ok {
			if lit.Value == disjunction {
				return nil, true, disjunction
			}
			// Identity literal: drop it.
			changed = true
			continue
		}
		out = append(out, sub)
	}
	if len(out) == 0 {
		// Every operand folded to the identity literal.
		return nil, true, !disjunction
	}
	if !changed {
		return nil, false, false
	}
	return out, false, false
}

func substituteConditional(c *types.Conditional, b Bindings) types.Expr {
	condIf := substitute(c.If, b)
	condThen := substitute(c.Then, b)

	if lit, ok := condIf.(*types.BoolLit); ok {
		if !lit.Value {
			// Vacuous: antecedent can no longer hold.
			return &types.BoolLit{Value: true}
		}
		return condThen
	}
	if lit, ok := condThen.(*types.BoolLit); ok {
		if lit.Value {
			return &types.BoolLit{Value: true}
		}
		// Consequent impossible: the rule now forbids the antecedent.
		return &types.Not{X: condIf}
	}
	if condIf == c.If && condThen == c.Then {
		return c
	}
	return &types.Conditional{If: condIf, Then: condThen}
}
