// Package ruledoc loads and renders declarative rule documents.
//
// A document is YAML describing a named rule set: structured expression
// trees plus optional categorical domain declarations and per-variable
// numeric bounds. The loader decodes structure only; it never parses rule
// source text.
//
// An expression node carries exactly one variant:
//
//	cmp:    {var: weight, rel: ">", const: 50}          linear comparison
//	        {terms: [{var: x, coef: 2}, ...], ...}      weighted-sum form
//	in:     {var: tier, labels: [gold, silver]}          membership
//	not_in: {var: tier, labels: [trial]}                 exclusion
//	all:    [nodes]                                      conjunction
//	any:    [nodes]                                      disjunction
//	not:    node                                         negation
//	if/then: node pair                                   conditional
//	bool:   true|false                                   constant
package ruledoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/solatis/ruleproof/internal/mip"
	"github.com/solatis/ruleproof/internal/types"
)

// Document is a parsed rule document.
type Document struct {
	Name    string              `yaml:"name"`
	Strict  bool                `yaml:"strict,omitempty"`
	Domains map[string][]string `yaml:"domains,omitempty"`
	Bounds  map[string]Bounds   `yaml:"bounds,omitempty"`
	Rules   []RuleDoc           `yaml:"rules"`
}

// Bounds declares the numeric domain of one variable.
type Bounds struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// RuleDoc is one named rule entry.
type RuleDoc struct {
	Name string `yaml:"name"`
	Expr *Node  `yaml:"expr"`
}

// Node is one expression tree node. Exactly one variant must be set;
// If and Then together form the conditional variant.
type Node struct {
	Cmp   *CmpNode `yaml:"cmp,omitempty"`
	In    *SetNode `yaml:"in,omitempty"`
	NotIn *SetNode `yaml:"not_in,omitempty"`
	All   []*Node  `yaml:"all,omitempty"`
	Any   []*Node  `yaml:"any,omitempty"`
	Not   *Node    `yaml:"not,omitempty"`
	If    *Node    `yaml:"if,omitempty"`
	Then  *Node    `yaml:"then,omitempty"`
	Bool  *bool    `yaml:"bool,omitempty"`
}

// CmpNode is a linear comparison. Var is shorthand for a single
// coefficient-1 term; Terms spells out a weighted sum.
type CmpNode struct {
	Var   string  `yaml:"var,omitempty"`
	Terms []Term  `yaml:"terms,omitempty"`
	Rel   string  `yaml:"rel"`
	Const float64 `yaml:"const"`
}

// Term is one weighted variable in a comparison.
type Term struct {
	Var  string  `yaml:"var"`
	Coef float64 `yaml:"coef"`
}

// SetNode is a membership or exclusion test.
type SetNode struct {
	Var    string   `yaml:"var"`
	Labels []string `yaml:"labels"`
}

// Parse decodes a rule document. Unknown fields are rejected so typos in
// hand-written documents fail loudly.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty rule document")
		}
		return nil, fmt.Errorf("invalid rule document: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("rule document has no name")
	}
	return &doc, nil
}

// ParseFile reads and decodes a rule document from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule document: %w", err)
	}
	return Parse(data)
}

// Marshal renders the document back to YAML.
func (d *Document) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to render rule document: %w", err)
	}
	return out, nil
}

// RuleSet builds the analyzable rule set. Build failures follow the
// lenient/strict contract of types.NewRuleSet: lenient mode skips the
// offending rules and reports them, strict mode returns a nil set on the
// first error.
func (d *Document) RuleSet() (*types.RuleSet, []error) {
	var (
		rules []*types.Rule
		errs  []error
	)
	for _, rd := range d.Rules {
		expr, err := rd.Expr.build()
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %q: %w", rd.Name, err))
			if d.Strict {
				return nil, errs
			}
			continue
		}
		r, err := types.NewRule(rd.Name, expr)
		if err != nil {
			errs = append(errs, err)
			if d.Strict {
				return nil, errs
			}
			continue
		}
		rules = append(rules, r)
	}

	set, setErrs := types.NewRuleSet(rules, types.SetOptions{
		Strict:  d.Strict,
		Domains: d.Domains,
	})
	return set, append(errs, setErrs...)
}

// VarBounds converts the bounds section for the encoder.
func (d *Document) VarBounds() map[string]mip.Bounds {
	if len(d.Bounds) == 0 {
		return nil
	}
	out := make(map[string]mip.Bounds, len(d.Bounds))
	for name, b := range d.Bounds {
		out[name] = mip.Bounds{Lower: b.Lower, Upper: b.Upper}
	}
	return out
}

// build converts one node into the expression tree.
func (n *Node) build() (types.Expr, error) {
	if n == nil {
		return nil, fmt.Errorf("missing expression")
	}

	variants := 0
	if n.Cmp != nil {
		variants++
	}
	if n.In != nil {
		variants++
	}
	if n.NotIn != nil {
		variants++
	}
	if n.All != nil {
		variants++
	}
	if n.Any != nil {
		variants++
	}
	if n.Not != nil {
		variants++
	}
	if n.Bool != nil {
		variants++
	}
	if n.If != nil || n.Then != nil {
		if n.If == nil || n.Then == nil {
			return nil, fmt.Errorf("if and then must appear together")
		}
		variants++
	}
	if variants != 1 {
		return nil, fmt.Errorf("expression node needs exactly one of cmp, in, not_in, all, any, not, if/then, bool")
	}

	switch {
	case n.Cmp != nil:
		return n.Cmp.build()
	case n.In != nil:
		return n.In.build(false)
	case n.NotIn != nil:
		return n.NotIn.build(true)
	case n.All != nil:
		xs, err := buildChildren(n.All)
		if err != nil {
			return nil, err
		}
		return &types.And{Xs: xs}, nil
	case n.Any != nil:
		xs, err := buildChildren(n.Any)
		if err != nil {
			return nil, err
		}
		return &types.Or{Xs: xs}, nil
	case n.Not != nil:
		x, err := n.Not.build()
		if err != nil {
			return nil, err
		}
		return &types.Not{X: x}, nil
	case n.Bool != nil:
		return &types.BoolLit{Value: *n.Bool}, nil
	default:
		a, err := n.If.build()
		if err != nil {
			return nil, err
		}
		b, err := n.Then.build()
		if err != nil {
			return nil, err
		}
		return &types.Conditional{If: a, Then: b}, nil
	}
}

func buildChildren(nodes []*Node) ([]types.Expr, error) {
	xs := make([]types.Expr, 0, len(nodes))
	for _, child := range nodes {
		x, err := child.build()
		if err != nil {
			return nil, err
		}
		xs = append(xs, x)
	}
	return xs, nil
}

func (c *CmpNode) build() (types.Expr, error) {
	rel, err := parseRel(c.Rel)
	if err != nil {
		return nil, err
	}

	var terms []types.LinTerm
	switch {
	case c.Var != "" && len(c.Terms) > 0:
		return nil, fmt.Errorf("cmp takes either var or terms, not both")
	case c.Var != "":
		terms = []types.LinTerm{{Var: c.Var, Coef: 1}}
	case len(c.Terms) > 0:
		terms = make([]types.LinTerm, 0, len(c.Terms))
		for _, t := range c.Terms {
			if t.Var == "" {
				return nil, fmt.Errorf("cmp term without a variable")
			}
			coef := t.Coef
			if coef == 0 {
				coef = 1
			}
			terms = append(terms, types.LinTerm{Var: t.Var, Coef: coef})
		}
	default:
		return nil, fmt.Errorf("cmp needs var or terms")
	}

	return &types.Comparison{Terms: terms, Rel: rel, Const: c.Const}, nil
}

func (s *SetNode) build(excluded bool) (types.Expr, error) {
	if s.Var == "" {
		return nil, fmt.Errorf("set test without a variable")
	}
	return &types.Membership{Var: s.Var, Labels: s.Labels, Excluded: excluded}, nil
}

func parseRel(s string) (types.Relation, error) {
	switch s {
	case "<=":
		return types.RelLE, nil
	case "<":
		return types.RelLT, nil
	case "==", "=":
		return types.RelEQ, nil
	case ">=":
		return types.RelGE, nil
	case ">":
		return types.RelGT, nil
	default:
		return 0, fmt.Errorf("unknown relation %q", s)
	}
}

// FromRuleSet renders an analyzed set back into a document, the inverse
// used by substitution and simplification output. When base is non-nil its
// name, strictness, domains and bounds carry over, so declarations survive
// a load-simplify-render round trip.
func FromRuleSet(rs *types.RuleSet, base *Document) *Document {
	doc := &Document{Name: "ruleset"}
	if base != nil {
		doc.Name = base.Name
		doc.Strict = base.Strict
		doc.Domains = base.Domains
		doc.Bounds = base.Bounds
	}
	for _, r := range rs.Rules() {
		doc.Rules = append(doc.Rules, RuleDoc{Name: r.Name, Expr: renderExpr(r.Expr)})
	}
	return doc
}

func renderExpr(e types.Expr) *Node {
	switch x := e.(type) {
	case *types.Comparison:
		cmp := &CmpNode{Rel: relString(x.Rel), Const: x.Const}
		if len(x.Terms) == 1 && x.Terms[0].Coef == 1 {
			cmp.Var = x.Terms[0].Var
		} else {
			for _, t := range x.Terms {
				cmp.Terms = append(cmp.Terms, Term{Var: t.Var, Coef: t.Coef})
			}
		}
		return &Node{Cmp: cmp}
	case *types.Membership:
		set := &SetNode{Var: x.Var, Labels: x.Labels}
		if x.Excluded {
			return &Node{NotIn: set}
		}
		return &Node{In: set}
	case *types.And:
		return &Node{All: renderChildren(x.Xs)}
	case *types.Or:
		return &Node{Any: renderChildren(x.Xs)}
	case *types.Not:
		return &Node{Not: renderExpr(x.X)}
	case *types.Conditional:
		return &Node{If: renderExpr(x.If), Then: renderExpr(x.Then)}
	case *types.BoolLit:
		v := x.Value
		return &Node{Bool: &v}
	default:
		return nil
	}
}

func renderChildren(xs []types.Expr) []*Node {
	nodes := make([]*Node, 0, len(xs))
	for _, x := range xs {
		nodes = append(nodes, renderExpr(x))
	}
	return nodes
}

func relString(r types.Relation) string {
	switch r {
	case types.RelLE:
		return "<="
	case types.RelLT:
		return "<"
	case types.RelEQ:
		return "=="
	case types.RelGE:
		return ">="
	case types.RelGT:
		return ">"
	default:
		return "?"
	}
}
