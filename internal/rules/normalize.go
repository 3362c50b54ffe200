// internal/rules/normalize.go
package rules

import (
	"fmt"

	"github.com/solatis/ruleproof/internal/types"
)

/*
 * Rule normalization to disjunctive normal form.
 *
 * Compiles a rule's expression tree into a NormalForm: a disjunction of
 * terms, each term a conjunction of atomic clauses. The rule holds exactly
 * when at least one term's clauses all hold.
 *
 * Normalization workflow:
 *   1. Negations are pushed to the leaves (De Morgan), flipping relations:
 *      <= and > swap, < and >= swap, == becomes the two-term (< or >),
 *      membership and exclusion swap.
 *   2. Conditionals expand by modus ponens: if A then B == (not A) or B.
 *      The antecedent is always the negated side; it never works the other
 *      way around.
 *   3. Disjunction concatenates term lists; conjunction takes the cross
 *      product of term lists.
 *
 * Degenerate clauses collapse during normalization: a constant comparison
 * (no variables left) and a membership over an empty label set become the
 * false form, an exclusion over an empty set becomes the true form.
 *
 * Why a term cap: the cross product step is exponential in nested
 * disjunctions. MaxNormalTerms bounds the expansion; exceeding it is an
 * EncodingError raised before any solver work.
 *
 * Representation: zero terms is the unsatisfiable form; a term with zero
 * clauses is the tautological form.
 */

// Term is a conjunction of atomic clauses.
type Term struct {
	Clauses []types.AtomicClause
}

// NormalForm is a disjunction of terms. It is derived from a rule on first
// use, cached by the analysis engine, and never mutated afterward.
type NormalForm struct {
	Terms []Term
}

// False reports whether the form is the empty disjunction.
func (nf *NormalForm) False() bool { return len(nf.Terms) == 0 }

// True reports whether the form contains an empty conjunction, which any
// assignment satisfies. Only meaningful on normalizer output, where true
// forms are collapsed to exactly one empty term.
func (nf *NormalForm) True() bool {
	return len(nf.Terms) == 1 && len(nf.Terms[0].Clauses) == 0
}

func trueForm() *NormalForm  { return &NormalForm{Terms: []Term{{}}} }
func falseForm() *NormalForm { return &NormalForm{} }

// Normalize compiles a rule to DNF. Errors carry the rule name.
func Normalize(r *types.Rule) (*NormalForm, error) {
	if r.Expr == nil {
		return nil, &types.DefinitionError{Rule: r.Name, Clause: -1, Err: types.ErrNilExpr}
	}
	nf, err := NormalizeExpr(r.Expr)
	if err != nil {
		return nil, attachRule(err, r.Name)
	}
	return nf, nil
}

// NormalizeExpr compiles a bare expression to DNF. Used directly for
// synthetic expressions such as negated rule bodies in implication queries.
func NormalizeExpr(e types.Expr) (*NormalForm, error) {
	switch n := e.(type) {
	case *types.BoolLit:
		if n.Value {
			return trueForm(), nil
		}
		return falseForm(), nil

	case *types.Comparison:
		return normalizeComparison(n)

	case *types.Membership:
		return normalizeMembership(n)

	case *types.Not:
		neg := NegateExpr(n.X)
		if nn, ok := neg.(*types.Not); ok {
			// NegateExpr had no rewrite for the inner node; bail out
			// rather than recurse on the same shape.
			return nil, &types.EncodingError{Reason: fmt.Sprintf("cannot negate expression node %T", nn.X)}
		}
		return NormalizeExpr(neg)

	case *types.And:
		result := trueForm()
		for _, x := range n.Xs {
			child, err := NormalizeExpr(x)
			if err != nil {
				return nil, err
			}
			result = conjoin(result, child)
			if len(result.Terms) > types.MaxNormalTerms {
				return nil, &types.EncodingError{Reason: "conjunction expansion", Err: types.ErrTermLimit}
			}
			if result.False() {
				return result, nil
			}
		}
		return result, nil

	case *types.Or:
		result := falseForm()
		for _, x := range n.Xs {
			child, err := NormalizeExpr(x)
			if err != nil {
				return nil, err
			}
			if child.True() {
				return trueForm(), nil
			}
			result.Terms = append(result.Terms, child.Terms...)
			if len(result.Terms) > types.MaxNormalTerms {
				return nil, &types.EncodingError{Reason: "disjunction expansion", Err: types.ErrTermLimit}
			}
		}
		return result, nil

	case *types.Conditional:
		return NormalizeExpr(&types.Or{Xs: []types.Expr{NegateExpr(n.If), n.Then}})

	default:
		return nil, &types.EncodingError{Reason: fmt.Sprintf("unsupported expression node %T", e)}
	}
}

// normalizeComparison builds a single-clause term, combining repeated
// variables and collapsing constant comparisons to a truth value.
func normalizeComparison(c *types.Comparison) (*NormalForm, error) {
	if c.Rel == types.RelUnspecified || c.Rel > types.RelGT {
		return nil, &types.DefinitionError{Clause: -1, Err: types.ErrUnknownRelation}
	}

	terms := combineTerms(c.Terms)
	if len(terms) == 0 {
		if compareConst(0, c.Rel, c.Const) {
			return trueForm(), nil
		}
		return falseForm(), nil
	}

	clause := types.AtomicClause{
		Kind:  types.ClauseLinear,
		Terms: terms,
		Rel:   c.Rel,
		Const: c.Const,
	}
	return &NormalForm{Terms: []Term{{Clauses: []types.AtomicClause{clause}}}}, nil
}

// normalizeMembership builds a single-clause term, collapsing the empty-set
// degenerates: membership of nothing is false, exclusion of nothing is true.
func normalizeMembership(m *types.Membership) (*NormalForm, error) {
	labels := dedupLabels(m.Labels)
	if len(labels) == 0 {
		if m.Excluded {
			return trueForm(), nil
		}
		return falseForm(), nil
	}

	kind := types.ClauseMembership
	if m.Excluded {
		kind = types.ClauseExclusion
	}
	clause := types.AtomicClause{Kind: kind, Var: m.Var, Labels: labels}
	return &NormalForm{Terms: []Term{{Clauses: []types.AtomicClause{clause}}}}, nil
}

// conjoin builds the cross product of two forms.
func conjoin(a, b *NormalForm) *NormalForm {
	if a.False() || b.False() {
		return falseForm()
	}
	out := &NormalForm{Terms: make([]Term, 0, len(a.Terms)*len(b.Terms))}
	for _, ta := range a.Terms {
		for _, tb := range b.Terms {
			merged := Term{Clauses: make([]types.AtomicClause, 0, len(ta.Clauses)+len(tb.Clauses))}
			merged.Clauses = append(merged.Clauses, ta.Clauses...)
			merged.Clauses = append(merged.Clauses, tb.Clauses...)
			out.Terms = append(out.Terms, merged)
		}
	}
	return out
}

// combineTerms sums coefficients of repeated variables, preserving
// first-appearance order, and drops terms that cancel to zero.
func combineTerms(in []types.LinTerm) []types.LinTerm {
	if len(in) == 0 {
		return nil
	}
	sums := make(map[string]float64, len(in))
	order := make([]string, 0, len(in))
	for _, t := range in {
		if _, seen := sums[t.Var]; !seen {
			order = append(order, t.Var)
		}
		sums[t.Var] += t.Coef
	}
	out := make([]types.LinTerm, 0, len(order))
	for _, v := range order {
		if sums[v] != 0 {
			out = append(out, types.LinTerm{Var: v, Coef: sums[v]})
		}
	}
	return out
}

func dedupLabels(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, l := range in {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// compareConst evaluates a constant comparison exactly, without tolerance.
func compareConst(lhs float64, rel types.Relation, rhs float64) bool {
	switch rel {
	case types.RelLE:
		return lhs <= rhs
	case types.RelLT:
		return lhs < rhs
	case types.RelEQ:
		return lhs == rhs
	case types.RelGE:
		return lhs >= rhs
	case types.RelGT:
		return lhs > rhs
	default:
		return false
	}
}

// attachRule fills the rule name into typed errors that lack one.
func attachRule(err error, name string) error {
	switch e := err.(type) {
	case *types.DefinitionError:
		if e.Rule == "" {
			return &types.DefinitionError{Rule: name, Clause: e.Clause, Err: e.Err}
		}
	case *types.EncodingError:
		if e.Rule == "" {
			return &types.EncodingError{Rule: name, Reason: e.Reason, Err: e.Err}
		}
	}
	return err
}
