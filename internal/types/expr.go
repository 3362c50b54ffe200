// internal/types/expr.go
package types

/*
 * Structured rule expressions.
 *
 * An Expr is the tree form in which rules arrive from the document loader
 * (or any other front end): comparisons and set tests at the leaves, boolean
 * connectives and a conditional form at the branches. The core never sees
 * rule source text, only these trees.
 *
 * BoolLit exists so that substitution can leave an explicit always-true or
 * always-false marker behind instead of silently dropping a rule.
 */

// Expr is a node in a rule expression tree. The set of implementations is
// closed: Comparison, Membership, Not, And, Or, Conditional, BoolLit.
type Expr interface {
	isExpr()
}

// Comparison is a linear comparison leaf: weighted sum REL constant.
type Comparison struct {
	Terms []LinTerm
	Rel   Relation
	Const float64
}

// Membership is a categorical set test leaf: Var in Labels, or Var not in
// Labels when Excluded is set.
type Membership struct {
	Var      string
	Labels   []string
	Excluded bool
}

// Not negates a sub-expression.
type Not struct {
	X Expr
}

// And is an n-ary conjunction. An empty conjunction is true.
type And struct {
	Xs []Expr
}

// Or is an n-ary disjunction. An empty disjunction is false.
type Or struct {
	Xs []Expr
}

// Conditional is the "if A then B" form. It is logically (not A) or B and is
// always expanded into that disjunction before encoding; it is never given
// implication semantics of its own.
type Conditional struct {
	If   Expr
	Then Expr
}

// BoolLit is a constant truth value, the explicit marker left behind when
// substitution fully evaluates a rule.
type BoolLit struct {
	Value bool
}

func (*Comparison) isExpr()  {}
func (*Membership) isExpr()  {}
func (*Not) isExpr()         {}
func (*And) isExpr()         {}
func (*Or) isExpr()          {}
func (*Conditional) isExpr() {}
func (*BoolLit) isExpr()     {}
