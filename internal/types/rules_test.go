// internal/types/rules_test.go
package types

import (
	"errors"
	"testing"
)

func gt(varName string, c float64) *Comparison {
	return &Comparison{Terms: []LinTerm{{Var: varName, Coef: 1}}, Rel: RelGT, Const: c}
}

func in(varName string, labels ...string) *Membership {
	return &Membership{Var: varName, Labels: labels}
}

func mustRule(t *testing.T, name string, e Expr) *Rule {
	t.Helper()
	r, err := NewRule(name, e)
	if err != nil {
		t.Fatalf("NewRule(%q) error = %v, want nil", name, err)
	}
	return r
}

func TestNewRuleSet_OrderAndLookup(t *testing.T) {
	rules := []*Rule{
		mustRule(t, "r1", gt("x", 1)),
		mustRule(t, "r2", gt("y", 2)),
		mustRule(t, "r3", in("status", "active", "paused")),
	}

	rs, errs := NewRuleSet(rules, SetOptions{})
	if len(errs) != 0 {
		t.Fatalf("NewRuleSet errs = %v, want none", errs)
	}
	if rs.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", rs.Len())
	}

	names := rs.Names()
	want := []string{"r1", "r2", "r3"}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], n)
		}
	}

	if _, ok := rs.Rule("r2"); !ok {
		t.Errorf("Rule(r2) not found")
	}
	if _, ok := rs.Rule("missing"); ok {
		t.Errorf("Rule(missing) found, want absent")
	}
}

func TestNewRuleSet_DuplicateName(t *testing.T) {
	rules := []*Rule{
		mustRule(t, "r1", gt("x", 1)),
		mustRule(t, "r1", gt("x", 2)),
	}

	rs, errs := NewRuleSet(rules, SetOptions{})
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want exactly one", errs)
	}
	if !errors.Is(errs[0], ErrDuplicateRule) {
		t.Errorf("errs[0] = %v, want ErrDuplicateRule", errs[0])
	}
	// Lenient mode keeps the first definition.
	if rs.Len() != 1 {
		t.Errorf("Len() = %d, want 1", rs.Len())
	}

	rs, errs = NewRuleSet(rules, SetOptions{Strict: true})
	if rs != nil {
		t.Errorf("strict set = %v, want nil", rs)
	}
	if len(errs) == 0 {
		t.Errorf("strict errs empty, want ErrDuplicateRule")
	}
}

func TestNewRuleSet_KindMismatchAcrossRules(t *testing.T) {
	rules := []*Rule{
		mustRule(t, "numeric_use", gt("v", 1)),
		mustRule(t, "categorical_use", in("v", "a")),
		mustRule(t, "unaffected", gt("w", 0)),
	}

	rs, errs := NewRuleSet(rules, SetOptions{})
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want exactly one", errs)
	}
	if !errors.Is(errs[0], ErrKindMismatch) {
		t.Errorf("errs[0] = %v, want ErrKindMismatch", errs[0])
	}

	var defErr *DefinitionError
	if !errors.As(errs[0], &defErr) {
		t.Fatalf("errs[0] is %T, want *DefinitionError", errs[0])
	}
	if defErr.Rule != "categorical_use" {
		t.Errorf("DefinitionError.Rule = %q, want categorical_use", defErr.Rule)
	}

	// The offending rule is skipped, the rest of the set survives.
	if rs.Len() != 2 {
		t.Errorf("Len() = %d, want 2", rs.Len())
	}
	if _, ok := rs.Rule("unaffected"); !ok {
		t.Errorf("rule after the offender was dropped")
	}
}

func TestNewRuleSet_KindMismatchWithinRule(t *testing.T) {
	mixed := &And{Xs: []Expr{gt("v", 1), in("v", "a")}}
	rules := []*Rule{mustRule(t, "mixed", mixed)}

	rs, errs := NewRuleSet(rules, SetOptions{})
	if len(errs) != 1 || !errors.Is(errs[0], ErrKindMismatch) {
		t.Fatalf("errs = %v, want one ErrKindMismatch", errs)
	}
	if rs.Len() != 0 {
		t.Errorf("Len() = %d, want 0", rs.Len())
	}
	// A failing rule must not leak partial variable entries.
	if _, ok := rs.Var("v"); ok {
		t.Errorf("Var(v) present after failed admit")
	}
}

func TestNewRuleSet_DomainInference(t *testing.T) {
	rules := []*Rule{
		mustRule(t, "r1", in("status", "active", "paused")),
		mustRule(t, "r2", &Membership{Var: "status", Labels: []string{"paused", "closed"}, Excluded: true}),
	}

	rs, errs := NewRuleSet(rules, SetOptions{})
	if len(errs) != 0 {
		t.Fatalf("errs = %v, want none", errs)
	}

	v, ok := rs.Var("status")
	if !ok {
		t.Fatalf("Var(status) missing")
	}
	if v.Kind != KindCategorical {
		t.Errorf("Kind = %v, want categorical", v.Kind)
	}
	want := []string{"active", "paused", "closed"}
	if len(v.Labels) != len(want) {
		t.Fatalf("Labels = %v, want %v", v.Labels, want)
	}
	for i := range want {
		if v.Labels[i] != want[i] {
			t.Errorf("Labels[%d] = %q, want %q", i, v.Labels[i], want[i])
		}
	}
}

func TestNewRuleSet_DeclaredDomains(t *testing.T) {
	rules := []*Rule{
		mustRule(t, "r1", in("region", "eu")),
	}
	opts := SetOptions{Domains: map[string][]string{"region": {"us", "eu", "apac"}}}

	rs, errs := NewRuleSet(rules, opts)
	if len(errs) != 0 {
		t.Fatalf("errs = %v, want none", errs)
	}

	v, _ := rs.Var("region")
	want := []string{"us", "eu", "apac"}
	if len(v.Labels) != len(want) {
		t.Fatalf("Labels = %v, want %v", v.Labels, want)
	}
	for i := range want {
		if v.Labels[i] != want[i] {
			t.Errorf("Labels[%d] = %q, want %q", i, v.Labels[i], want[i])
		}
	}
}

func TestNewRuleSet_UnknownRelation(t *testing.T) {
	bad := &Comparison{Terms: []LinTerm{{Var: "x", Coef: 1}}, Rel: RelUnspecified, Const: 0}
	rules := []*Rule{mustRule(t, "bad", &And{Xs: []Expr{gt("x", 0), bad}})}

	_, errs := NewRuleSet(rules, SetOptions{})
	if len(errs) != 1 || !errors.Is(errs[0], ErrUnknownRelation) {
		t.Fatalf("errs = %v, want one ErrUnknownRelation", errs)
	}
	var defErr *DefinitionError
	if !errors.As(errs[0], &defErr) {
		t.Fatalf("errs[0] is %T, want *DefinitionError", errs[0])
	}
	if defErr.Clause != 1 {
		t.Errorf("Clause = %d, want 1 (second leaf)", defErr.Clause)
	}
}

func TestNewRuleSet_ClauseTermLimit(t *testing.T) {
	terms := make([]LinTerm, MaxClauseTerms+1)
	for i := range terms {
		terms[i] = LinTerm{Var: "x", Coef: 1}
	}
	rules := []*Rule{mustRule(t, "wide", &Comparison{Terms: terms, Rel: RelLE, Const: 0})}

	_, errs := NewRuleSet(rules, SetOptions{})
	if len(errs) != 1 || !errors.Is(errs[0], ErrTooManyClauseTerms) {
		t.Fatalf("errs = %v, want one ErrTooManyClauseTerms", errs)
	}
}

func TestRuleSet_Without(t *testing.T) {
	rules := []*Rule{
		mustRule(t, "r1", gt("x", 1)),
		mustRule(t, "r2", gt("y", 2)),
		mustRule(t, "r3", gt("x", 3)),
	}
	rs, _ := NewRuleSet(rules, SetOptions{})

	trimmed := rs.Without("r2")
	if trimmed.Len() != 2 {
		t.Fatalf("trimmed Len() = %d, want 2", trimmed.Len())
	}
	if _, ok := trimmed.Rule("r2"); ok {
		t.Errorf("r2 still present after Without")
	}

	// Original is untouched.
	if rs.Len() != 3 {
		t.Errorf("original Len() = %d, want 3", rs.Len())
	}

	// Rule entries are shared, not copied.
	orig, _ := rs.Rule("r1")
	kept, _ := trimmed.Rule("r1")
	if orig != kept {
		t.Errorf("Without copied rule entries, want shared pointers")
	}

	// The variable universe stays that of the base set.
	if len(trimmed.Variables()) != len(rs.Variables()) {
		t.Errorf("Without changed the variable table")
	}
}

func TestRuleSet_EmptySet(t *testing.T) {
	rs, errs := NewRuleSet(nil, SetOptions{})
	if len(errs) != 0 {
		t.Fatalf("errs = %v, want none", errs)
	}
	if rs.Len() != 0 {
		t.Errorf("Len() = %d, want 0", rs.Len())
	}
	if len(rs.Names()) != 0 {
		t.Errorf("Names() = %v, want empty", rs.Names())
	}
}
