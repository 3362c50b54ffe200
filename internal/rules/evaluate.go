// internal/rules/evaluate.go
package rules

import (
	"fmt"
	"slices"

	"github.com/solatis/ruleproof/internal/types"
)

/*
 * Rule evaluation against concrete bindings.
 *
 * Evaluation is the ground-truth semantics the solver pipeline is checked
 * against: a satisfying assignment reported by the solver must evaluate to
 * true here, and EvaluateExpr/EvaluateForm must agree on every rule so the
 * normalizer can be cross-checked without a solver in the loop.
 *
 * Evaluation flow mirrors DNF semantics (OR of AND terms) with
 * short-circuit: first matching term stops evaluation, first failing clause
 * stops a term.
 *
 * Strict relations compare exactly. The solver-side epsilon widening is a
 * feasibility device, not part of rule semantics, so it has no place here.
 */

// EvaluateExpr reports whether the expression holds under the bindings.
// Every variable the expression references must be bound.
func EvaluateExpr(e types.Expr, b Bindings) (bool, error) {
	switch n := e.(type) {
	case *types.BoolLit:
		return n.Value, nil

	case *types.Comparison:
		lhs := 0.0
		for _, t := range n.Terms {
			v, ok := b[t.Var]
			if !ok {
				return false, fmt.Errorf("variable %q: %w", t.Var, types.ErrUnboundVariable)
			}
			lhs += t.Coef * v.Number
		}
		return compareConst(lhs, n.Rel, n.Const), nil

	case *types.Membership:
		v, ok := b[n.Var]
		if !ok {
			return false, fmt.Errorf("variable %q: %w", n.Var, types.ErrUnboundVariable)
		}
		present := slices.Contains(n.Labels, v.Label)
		return present != n.Excluded, nil

	case *types.Not:
		ok, err := EvaluateExpr(n.X, b)
		return !ok, err

	case *types.And:
		for _, x := range n.Xs {
			ok, err := EvaluateExpr(x, b)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case *types.Or:
		for _, x := range n.Xs {
			ok, err := EvaluateExpr(x, b)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case *types.Conditional:
		holds, err := EvaluateExpr(n.If, b)
		if err != nil {
			return false, err
		}
		if !holds {
			return true, nil
		}
		return EvaluateExpr(n.Then, b)

	default:
		return false, fmt.Errorf("unsupported expression node %T", e)
	}
}

// EvaluateForm reports whether at least one term of the normal form holds.
func EvaluateForm(nf *NormalForm, b Bindings) (bool, error) {
	for _, term := range nf.Terms {
		ok, err := evaluateTerm(term, b)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// evaluateTerm checks all clauses of a conjunction, short-circuiting on the
// first clause that does not hold.
func evaluateTerm(t Term, b Bindings) (bool, error) {
	for _, c := range t.Clauses {
		ok, err := evaluateClause(c, b)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evaluateClause(c types.AtomicClause, b Bindings) (bool, error) {
	switch c.Kind {
	case types.ClauseLinear:
		lhs := 0.0
		for _, t := range c.Terms {
			v, ok := b[t.Var]
			if !ok {
				return false, fmt.Errorf("variable %q: %w", t.Var, types.ErrUnboundVariable)
			}
			lhs += t.Coef * v.Number
		}
		return compareConst(lhs, c.Rel, c.Const), nil

	case types.ClauseMembership, types.ClauseExclusion:
		v, ok := b[c.Var]
		if !ok {
			return false, fmt.Errorf("variable %q: %w", c.Var, types.ErrUnboundVariable)
		}
		present := slices.Contains(c.Labels, v.Label)
		if c.Kind == types.ClauseExclusion {
			return !present, nil
		}
		return present, nil

	default:
		return false, types.ErrUnknownClauseKind
	}
}
