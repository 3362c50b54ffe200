// internal/mip/encode.go
package mip

import (
	"fmt"
	"math"

	"github.com/solatis/ruleproof/internal/rules"
	"github.com/solatis/ruleproof/internal/types"
)

/*
 * DNF-to-MIP encoding.
 *
 * Every rule in normal form becomes a block of rows in one shared program,
 * over one shared variable universe:
 *
 *   - Each numeric variable is a continuous column bounded by its
 *     configured domain.
 *   - Each categorical variable expands to one binary indicator column per
 *     label, tied together by an exactly-one row (closed world: the
 *     variable always holds exactly one of its observed labels).
 *   - A single-term rule encodes its clauses as plain rows.
 *   - A multi-term rule gets one binary selector column per term and a
 *     covering row (selector sum >= 1); each clause row is relaxed by
 *     big-M unless its term's selector is picked. Selecting a term forces
 *     that term's clauses, so the block is satisfiable exactly when some
 *     term of the disjunction is.
 *
 * Strict inequalities are widened by epsilon before anything else: x > c
 * becomes x >= c+epsilon, x < c becomes x <= c-epsilon. Equality under a
 * selector needs both directions relaxed, so it splits into a guarded <=
 * and a guarded >= row.
 *
 * Big-M is computed per row from the bounds of the row's own columns:
 * M = sum(|a_i| * max(|lower_i|, |upper_i|)) + |rhs| + 1. That keeps the
 * relaxation as tight as the domains allow instead of using one global
 * blunt constant. Rows over indicator columns only are bounded by
 * construction and skip big-M entirely.
 *
 * Degenerate forms: a rule whose normal form is empty is unconditionally
 * impossible and encodes as the constant-infeasible row 0 >= 1; a rule
 * with a clause-free term is a tautology and encodes no rows at all.
 */

// Default numeric domain. The zero lower bound matches the intended
// modelling domain (counts, amounts, rates); signed quantities need an
// explicit bounds override.
const (
	DefaultEpsilon    = 1e-7
	DefaultLowerBound = 0
	DefaultUpperBound = 1e7
)

// Bounds is a per-variable numeric domain override.
type Bounds struct {
	Lower float64
	Upper float64
}

// Options tunes the encoding.
type Options struct {
	// Epsilon widens strict inequalities. Zero or negative selects
	// DefaultEpsilon.
	Epsilon float64

	// DefaultLower and DefaultUpper bound numeric variables without an
	// explicit override. A zero DefaultUpper selects DefaultUpperBound.
	DefaultLower float64
	DefaultUpper float64

	// VarBounds overrides the domain of individual numeric variables.
	VarBounds map[string]Bounds
}

// RuleForm pairs a rule name with its normal form, in the order the rows
// should appear in the program.
type RuleForm struct {
	Name string
	Form *rules.NormalForm
}

// Encoder translates normal forms into a feasibility program.
type Encoder struct {
	opts Options
}

func NewEncoder(opts Options) *Encoder {
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	if opts.DefaultUpper == 0 {
		opts.DefaultUpper = DefaultUpperBound
	}
	return &Encoder{opts: opts}
}

// Epsilon returns the strict-inequality widening in effect.
func (enc *Encoder) Epsilon() float64 { return enc.opts.Epsilon }

// Encode builds one program holding every given rule form over the set's
// variable universe. The forms decide which rules constrain the program;
// the set decides which columns exist, so forms for removed rules can
// simply be left out without changing the universe.
func (enc *Encoder) Encode(rs *types.RuleSet, forms []RuleForm) (*Program, error) {
	p := NewProgram()

	for _, v := range rs.Variables() {
		switch v.Kind {
		case types.KindNumeric:
			b, err := enc.bounds(v.Name)
			if err != nil {
				return nil, err
			}
			p.AddVariable(Variable{Name: v.Name, Type: Continuous, Lower: b.Lower, Upper: b.Upper})

		case types.KindCategorical:
			// A categorical variable with no observed labels cannot be
			// referenced by any surviving clause; give it no columns
			// rather than an unsatisfiable empty exactly-one row.
			if len(v.Labels) == 0 {
				continue
			}
			row := Row{
				Coeffs: make(map[int]float64, len(v.Labels)),
				Sense:  SenseEQ,
				RHS:    1,
				Label:  fmt.Sprintf("domain(%s)", v.Name),
			}
			for _, l := range v.Labels {
				idx := p.AddVariable(Variable{Name: IndicatorName(v.Name, l), Type: Binary})
				row.Coeffs[idx] = 1
			}
			p.AddRow(row)

		default:
			return nil, &types.EncodingError{
				Reason: fmt.Sprintf("variable %q has unspecified kind", v.Name),
				Err:    types.ErrKindMismatch,
			}
		}
	}

	for _, rf := range forms {
		if err := enc.encodeRule(p, rf); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// IndicatorName is the column name of a categorical indicator.
func IndicatorName(variable, label string) string {
	return variable + "=" + label
}

// SelectorName is the column name of a term selector.
func SelectorName(rule string, term int) string {
	return fmt.Sprintf("%s#t%d", rule, term)
}

func (enc *Encoder) bounds(name string) (Bounds, error) {
	b := Bounds{Lower: enc.opts.DefaultLower, Upper: enc.opts.DefaultUpper}
	if override, ok := enc.opts.VarBounds[name]; ok {
		b = override
	}
	if b.Lower > b.Upper || math.IsNaN(b.Lower) || math.IsNaN(b.Upper) {
		return Bounds{}, &types.EncodingError{
			Reason: fmt.Sprintf("variable %q has invalid bounds [%g, %g]", name, b.Lower, b.Upper),
		}
	}
	return b, nil
}

func (enc *Encoder) encodeRule(p *Program, rf RuleForm) error {
	nf := rf.Form
	if nf == nil || nf.False() {
		// Unconditionally impossible: 0 >= 1.
		p.AddRow(Row{Sense: SenseGE, RHS: 1, Label: rf.Name + "#false"})
		return nil
	}
	for _, term := range nf.Terms {
		if len(term.Clauses) == 0 {
			// A clause-free term satisfies the disjunction outright.
			return nil
		}
	}

	if len(nf.Terms) == 1 {
		for ci, clause := range nf.Terms[0].Clauses {
			label := fmt.Sprintf("%s#t0c%d", rf.Name, ci)
			if err := enc.encodeClause(p, rf.Name, clause, label, -1); err != nil {
				return err
			}
		}
		return nil
	}

	// One selector per term; at least one term must be picked.
	cover := Row{
		Coeffs: make(map[int]float64, len(nf.Terms)),
		Sense:  SenseGE,
		RHS:    1,
		Label:  fmt.Sprintf("pick(%s)", rf.Name),
	}
	for ti := range nf.Terms {
		sel := p.AddVariable(Variable{Name: SelectorName(rf.Name, ti), Type: Binary})
		cover.Coeffs[sel] = 1
	}
	p.AddRow(cover)

	for ti, term := range nf.Terms {
		sel, _ := p.Column(SelectorName(rf.Name, ti))
		for ci, clause := range term.Clauses {
			label := fmt.Sprintf("%s#t%dc%d", rf.Name, ti, ci)
			if err := enc.encodeClause(p, rf.Name, clause, label, sel); err != nil {
				return err
			}
		}
	}
	return nil
}

// encodeClause emits the rows for one atomic clause. A selector column of
// -1 means the clause is unguarded and must always hold.
func (enc *Encoder) encodeClause(p *Program, rule string, c types.AtomicClause, label string, sel int) error {
	switch c.Kind {
	case types.ClauseLinear:
		return enc.encodeLinear(p, rule, c, label, sel)
	case types.ClauseMembership:
		return enc.encodeMembership(p, rule, c, label, sel)
	case types.ClauseExclusion:
		return enc.encodeExclusion(p, rule, c, label, sel)
	default:
		return &types.EncodingError{Rule: rule, Reason: label, Err: types.ErrUnknownClauseKind}
	}
}

func (enc *Encoder) encodeLinear(p *Program, rule string, c types.AtomicClause, label string, sel int) error {
	coeffs := make(map[int]float64, len(c.Terms))
	for _, t := range c.Terms {
		idx, ok := p.Column(t.Var)
		if !ok {
			return &types.EncodingError{
				Rule:   rule,
				Reason: fmt.Sprintf("%s: no column for variable %q", label, t.Var),
				Err:    types.ErrUnknownVariable,
			}
		}
		if p.Variables()[idx].Type != Continuous {
			return &types.EncodingError{
				Rule:   rule,
				Reason: fmt.Sprintf("%s: variable %q is not numeric", label, t.Var),
				Err:    types.ErrKindMismatch,
			}
		}
		coeffs[idx] += t.Coef
	}

	// Widen strict relations before the big-M is derived so the relaxation
	// covers the shifted RHS too.
	sense, rhs := SenseLE, c.Const
	switch c.Rel {
	case types.RelLE:
	case types.RelLT:
		rhs -= enc.opts.Epsilon
	case types.RelGE:
		sense = SenseGE
	case types.RelGT:
		sense, rhs = SenseGE, rhs+enc.opts.Epsilon
	case types.RelEQ:
		sense = SenseEQ
	default:
		return &types.EncodingError{Rule: rule, Reason: label, Err: types.ErrUnknownRelation}
	}

	if sel < 0 {
		p.AddRow(Row{Coeffs: coeffs, Sense: sense, RHS: rhs, Label: label})
		return nil
	}

	m := enc.bigM(p, coeffs, rhs)
	switch sense {
	case SenseLE:
		p.AddRow(guardedRow(coeffs, SenseLE, rhs, sel, m, label))
	case SenseGE:
		p.AddRow(guardedRow(coeffs, SenseGE, rhs, sel, m, label))
	case SenseEQ:
		// Equality relaxes in both directions, one row each.
		p.AddRow(guardedRow(coeffs, SenseLE, rhs, sel, m, label+"le"))
		p.AddRow(guardedRow(coeffs, SenseGE, rhs, sel, m, label+"ge"))
	}
	return nil
}

// guardedRow relaxes a row unless its selector is picked: a <= row gains
// +M on the selector and M on the RHS, a >= row loses M on both.
func guardedRow(coeffs map[int]float64, sense Sense, rhs float64, sel int, m float64, label string) Row {
	g := make(map[int]float64, len(coeffs)+1)
	for k, v := range coeffs {
		g[k] = v
	}
	switch sense {
	case SenseLE:
		g[sel] += m
		rhs += m
	case SenseGE:
		g[sel] -= m
		rhs -= m
	}
	return Row{Coeffs: g, Sense: sense, RHS: rhs, Label: label}
}

// bigM bounds |sum(a_i * x_i) - rhs| over the row's own column domains.
func (enc *Encoder) bigM(p *Program, coeffs map[int]float64, rhs float64) float64 {
	vars := p.Variables()
	m := math.Abs(rhs) + 1
	for idx, coef := range coeffs {
		v := vars[idx]
		m += math.Abs(coef) * math.Max(math.Abs(v.Lower), math.Abs(v.Upper))
	}
	return m
}

func (enc *Encoder) encodeMembership(p *Program, rule string, c types.AtomicClause, label string, sel int) error {
	if len(c.Labels) == 0 {
		// Membership of nothing can never hold. Unguarded it sinks the
		// whole program; guarded it just forbids picking this term.
		if sel < 0 {
			p.AddRow(Row{Sense: SenseGE, RHS: 1, Label: label})
		} else {
			p.AddRow(Row{Coeffs: map[int]float64{sel: -1}, Sense: SenseGE, RHS: 0, Label: label})
		}
		return nil
	}

	coeffs, err := enc.indicatorCoeffs(p, rule, c, label, 1)
	if err != nil {
		return err
	}
	if sel < 0 {
		p.AddRow(Row{Coeffs: coeffs, Sense: SenseGE, RHS: 1, Label: label})
		return nil
	}
	// sum(d) >= s: picking the term demands one of the labels; otherwise
	// the row is slack since indicators are nonnegative.
	coeffs[sel] = -1
	p.AddRow(Row{Coeffs: coeffs, Sense: SenseGE, RHS: 0, Label: label})
	return nil
}

func (enc *Encoder) encodeExclusion(p *Program, rule string, c types.AtomicClause, label string, sel int) error {
	if len(c.Labels) == 0 {
		// Excluding nothing always holds.
		return nil
	}

	coeffs, err := enc.indicatorCoeffs(p, rule, c, label, 1)
	if err != nil {
		return err
	}
	n := float64(len(c.Labels))
	if sel < 0 {
		p.AddRow(Row{Coeffs: coeffs, Sense: SenseLE, RHS: 0, Label: label})
		return nil
	}
	// sum(d) <= n*(1-s): picking the term zeroes every listed indicator.
	coeffs[sel] = n
	p.AddRow(Row{Coeffs: coeffs, Sense: SenseLE, RHS: n, Label: label})
	return nil
}

func (enc *Encoder) indicatorCoeffs(p *Program, rule string, c types.AtomicClause, label string, coef float64) (map[int]float64, error) {
	coeffs := make(map[int]float64, len(c.Labels))
	for _, l := range c.Labels {
		idx, ok := p.Column(IndicatorName(c.Var, l))
		if !ok {
			return nil, &types.EncodingError{
				Rule:   rule,
				Reason: fmt.Sprintf("%s: no indicator for %s=%s", label, c.Var, l),
				Err:    types.ErrUnknownVariable,
			}
		}
		coeffs[idx] = coef
	}
	return coeffs, nil
}
