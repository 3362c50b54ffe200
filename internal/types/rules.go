// internal/types/rules.go
package types

import (
	"fmt"
	"sort"
)

/*
 * Rule and RuleSet domain types.
 *
 * A Rule pairs a unique name with an expression tree. A RuleSet is an
 * insertion-ordered, name-indexed collection with a variable table inferred
 * from every clause in the set: variable kinds (numeric vs categorical) and
 * the closed-world label domains of categorical variables.
 *
 * RuleSets are immutable. Every transformation (removing rules, substituting
 * values) produces a new set; derived sets share Rule pointers and the base
 * variable table, so concurrent queries against snapshots need no locking.
 *
 * Why construction-time validation: kind conflicts and limit violations are
 * reported when the set is built, not when a query first touches the broken
 * rule. Lenient mode skips offending rules and reports them per rule; strict
 * mode rejects the whole set.
 */

// Rule is a named logical expression. Rules are immutable after
// construction; treat the fields as read-only.
type Rule struct {
	Name string
	Expr Expr
}

// NewRule validates the invariants a Rule must hold on its own.
func NewRule(name string, expr Expr) (*Rule, error) {
	if name == "" {
		return nil, &DefinitionError{Rule: name, Clause: -1, Err: ErrEmptyRuleName}
	}
	if expr == nil {
		return nil, &DefinitionError{Rule: name, Clause: -1, Err: ErrNilExpr}
	}
	return &Rule{Name: name, Expr: expr}, nil
}

// SetOptions controls rule-set construction.
type SetOptions struct {
	// Strict aborts construction on the first definition error instead of
	// skipping the offending rule.
	Strict bool

	// Domains declares categorical label domains up front, widening the
	// domains inferred from clause labels. Useful when an exclusion clause
	// mentions every known label and the variable still needs an escape
	// value.
	Domains map[string][]string
}

// RuleSet is an ordered, immutable mapping from rule name to Rule.
type RuleSet struct {
	names    []string
	byName   map[string]*Rule
	vars     map[string]*Variable
	varOrder []string
	opts     SetOptions
}

// NewRuleSet validates and indexes rules. The returned error slice holds one
// DefinitionError per offending rule; in lenient mode those rules are
// excluded from the set and the remainder is still usable, in strict mode
// the set is nil whenever the slice is non-empty.
func NewRuleSet(rules []*Rule, opts SetOptions) (*RuleSet, []error) {
	if len(rules) > MaxRules {
		return nil, []error{fmt.Errorf("%w: %d > %d", ErrTooManyRules, len(rules), MaxRules)}
	}

	rs := &RuleSet{
		byName: make(map[string]*Rule, len(rules)),
		vars:   make(map[string]*Variable),
		opts:   opts,
	}
	var errs []error

	// Declared domains seed the variable table before inference so their
	// label order is stable regardless of clause order.
	for _, name := range sortedKeys(opts.Domains) {
		v := &Variable{Name: name, Kind: KindCategorical}
		for _, l := range opts.Domains[name] {
			v.Labels = appendLabel(v.Labels, l)
		}
		rs.vars[name] = v
		rs.varOrder = append(rs.varOrder, name)
	}

	for _, r := range rules {
		if err := rs.admit(r); err != nil {
			errs = append(errs, err)
			if opts.Strict {
				return nil, errs
			}
			continue
		}
	}

	for _, v := range rs.vars {
		if v.Kind == KindCategorical && len(v.Labels) > MaxLabels {
			errs = append(errs, fmt.Errorf("variable %q: %w", v.Name, ErrTooManyLabels))
			if opts.Strict {
				return nil, errs
			}
		}
	}

	return rs, errs
}

// admit validates one rule against the set built so far and, on success,
// merges its variable uses into the table.
func (rs *RuleSet) admit(r *Rule) error {
	if r == nil || r.Name == "" {
		name := ""
		if r != nil {
			name = r.Name
		}
		return &DefinitionError{Rule: name, Clause: -1, Err: ErrEmptyRuleName}
	}
	if r.Expr == nil {
		return &DefinitionError{Rule: r.Name, Clause: -1, Err: ErrNilExpr}
	}
	if _, dup := rs.byName[r.Name]; dup {
		return &DefinitionError{Rule: r.Name, Clause: -1, Err: ErrDuplicateRule}
	}

	// Infer into a scratch table first so a failing rule leaves the set's
	// table untouched.
	scratch := make(map[string]*Variable)
	var scratchOrder []string
	clause := 0
	err := walkLeaves(r.Expr, func(e Expr) error {
		defer func() { clause++ }()
		switch leaf := e.(type) {
		case *Comparison:
			if leaf.Rel == RelUnspecified || leaf.Rel > RelGT {
				return &DefinitionError{Rule: r.Name, Clause: clause, Err: ErrUnknownRelation}
			}
			if len(leaf.Terms) > MaxClauseTerms {
				return &DefinitionError{Rule: r.Name, Clause: clause, Err: ErrTooManyClauseTerms}
			}
			for _, t := range leaf.Terms {
				if err := mergeVar(rs.vars, scratch, &scratchOrder, t.Var, KindNumeric, nil); err != nil {
					return &DefinitionError{Rule: r.Name, Clause: clause, Err: err}
				}
			}
		case *Membership:
			if err := mergeVar(rs.vars, scratch, &scratchOrder, leaf.Var, KindCategorical, leaf.Labels); err != nil {
				return &DefinitionError{Rule: r.Name, Clause: clause, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, name := range scratchOrder {
		sv := scratch[name]
		if existing, ok := rs.vars[name]; ok {
			for _, l := range sv.Labels {
				existing.Labels = appendLabel(existing.Labels, l)
			}
		} else {
			rs.vars[name] = sv
			rs.varOrder = append(rs.varOrder, name)
		}
	}

	rs.names = append(rs.names, r.Name)
	rs.byName[r.Name] = r
	return nil
}

// mergeVar records a variable use of the given kind, checking consistency
// against both the committed table and the per-rule scratch table.
func mergeVar(committed, scratch map[string]*Variable, order *[]string, name string, kind VarKind, labels []string) error {
	if name == "" {
		return fmt.Errorf("empty variable name: %w", ErrUnknownVariable)
	}
	if v, ok := committed[name]; ok && v.Kind != kind {
		return fmt.Errorf("variable %q used as %s and %s: %w", name, v.Kind, kind, ErrKindMismatch)
	}
	v, ok := scratch[name]
	if !ok {
		v = &Variable{Name: name, Kind: kind}
		scratch[name] = v
		*order = append(*order, name)
	} else if v.Kind != kind {
		return fmt.Errorf("variable %q used as %s and %s: %w", name, v.Kind, kind, ErrKindMismatch)
	}
	for _, l := range labels {
		v.Labels = appendLabel(v.Labels, l)
	}
	return nil
}

// walkLeaves visits every Comparison and Membership leaf in tree order.
func walkLeaves(e Expr, visit func(Expr) error) error {
	switch n := e.(type) {
	case *Comparison, *Membership:
		return visit(n)
	case *BoolLit:
		return nil
	case *Not:
		return walkLeaves(n.X, visit)
	case *And:
		for _, x := range n.Xs {
			if err := walkLeaves(x, visit); err != nil {
				return err
			}
		}
		return nil
	case *Or:
		for _, x := range n.Xs {
			if err := walkLeaves(x, visit); err != nil {
				return err
			}
		}
		return nil
	case *Conditional:
		if err := walkLeaves(n.If, visit); err != nil {
			return err
		}
		return walkLeaves(n.Then, visit)
	default:
		return fmt.Errorf("unsupported expression node %T", e)
	}
}

func appendLabel(labels []string, l string) []string {
	for _, have := range labels {
		if have == l {
			return labels
		}
	}
	return append(labels, l)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int { return len(rs.names) }

// Names returns the rule names in insertion order.
func (rs *RuleSet) Names() []string {
	out := make([]string, len(rs.names))
	copy(out, rs.names)
	return out
}

// Rule looks up a rule by name in O(1).
func (rs *RuleSet) Rule(name string) (*Rule, bool) {
	r, ok := rs.byName[name]
	return r, ok
}

// Rules returns the rules in insertion order.
func (rs *RuleSet) Rules() []*Rule {
	out := make([]*Rule, 0, len(rs.names))
	for _, n := range rs.names {
		out = append(out, rs.byName[n])
	}
	return out
}

// Variables returns the inferred variable table in first-appearance order.
// The table covers the whole set; derived sets produced by Without share it,
// so the variable universe of an analysis stays fixed while rules are
// removed.
func (rs *RuleSet) Variables() []*Variable {
	out := make([]*Variable, 0, len(rs.varOrder))
	for _, n := range rs.varOrder {
		out = append(out, rs.vars[n])
	}
	return out
}

// Var looks up a variable by name.
func (rs *RuleSet) Var(name string) (*Variable, bool) {
	v, ok := rs.vars[name]
	return v, ok
}

// Options returns the options the set was built with.
func (rs *RuleSet) Options() SetOptions { return rs.opts }

// Without returns a new set with the named rules removed. Remaining Rule
// entries and the variable table are shared, not copied.
func (rs *RuleSet) Without(names ...string) *RuleSet {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := &RuleSet{
		byName:   make(map[string]*Rule, len(rs.names)),
		vars:     rs.vars,
		varOrder: rs.varOrder,
		opts:     rs.opts,
	}
	for _, n := range rs.names {
		if drop[n] {
			continue
		}
		out.names = append(out.names, n)
		out.byName[n] = rs.byName[n]
	}
	return out
}
