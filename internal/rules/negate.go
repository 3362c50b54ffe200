// internal/rules/negate.go
package rules

import (
	"github.com/solatis/ruleproof/internal/types"
)

// NegateExpr rewrites an expression to its logical negation with Not nodes
// eliminated everywhere a leaf rewrite exists. Relations flip to their
// complements; equality becomes the two-sided disjunction (< or >), which is
// why negation can grow the tree. The rewrite is total: it never fails, and
// leaves malformed relations in place for Normalize to report.
func NegateExpr(e types.Expr) types.Expr {
	switch n := e.(type) {
	case *types.BoolLit:
		return &types.BoolLit{Value: !n.Value}

	case *types.Comparison:
		return negateComparison(n)

	case *types.Membership:
		return &types.Membership{Var: n.Var, Labels: n.Labels, Excluded: !n.Excluded}

	case *types.Not:
		return n.X

	case *types.And:
		xs := make([]types.Expr, len(n.Xs))
		for i, x := range n.Xs {
			xs[i] = NegateExpr(x)
		}
		return &types.Or{Xs: xs}

	case *types.Or:
		xs := make([]types.Expr, len(n.Xs))
		for i, x := range n.Xs {
			xs[i] = NegateExpr(x)
		}
		return &types.And{Xs: xs}

	case *types.Conditional:
		// not (if A then B) == A and not B
		return &types.And{Xs: []types.Expr{n.If, NegateExpr(n.Then)}}

	default:
		return &types.Not{X: e}
	}
}

func negateComparison(c *types.Comparison) types.Expr {
	switch c.Rel {
	case types.RelLE:
		return &types.Comparison{Terms: c.Terms, Rel: types.RelGT, Const: c.Const}
	case types.RelLT:
		return &types.Comparison{Terms: c.Terms, Rel: types.RelGE, Const: c.Const}
	case types.RelGE:
		return &types.Comparison{Terms: c.Terms, Rel: types.RelLT, Const: c.Const}
	case types.RelGT:
		return &types.Comparison{Terms: c.Terms, Rel: types.RelLE, Const: c.Const}
	case types.RelEQ:
		return &types.Or{Xs: []types.Expr{
			&types.Comparison{Terms: c.Terms, Rel: types.RelLT, Const: c.Const},
			&types.Comparison{Terms: c.Terms, Rel: types.RelGT, Const: c.Const},
		}}
	default:
		// Left for Normalize to reject with ErrUnknownRelation.
		return c
	}
}
