// Package types provides domain models shared across ruleproof components.
//
// Zero-dependency design: types.go, expr.go, rules.go and errors.go use only
// the standard library so the model can be embedded without pulling in the
// solver or persistence stacks. ID utilities in ids.go import uuid but are
// isolated for selective inclusion.
package types

// VarKind distinguishes numeric variables (continuous, linear arithmetic)
// from categorical variables (finite label domains).
type VarKind int

const (
	KindUnspecified VarKind = iota
	KindNumeric
	KindCategorical
)

func (k VarKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "unspecified"
	}
}

// Relation is the comparison relation of a linear clause.
type Relation int

const (
	RelUnspecified Relation = iota
	RelLE                   // <=
	RelLT                   // <
	RelEQ                   // ==
	RelGE                   // >=
	RelGT                   // >
)

func (r Relation) String() string {
	switch r {
	case RelLE:
		return "<="
	case RelLT:
		return "<"
	case RelEQ:
		return "=="
	case RelGE:
		return ">="
	case RelGT:
		return ">"
	default:
		return "?"
	}
}

// Strict reports whether the relation excludes the boundary itself.
// Strict relations are encoded with a tolerance offset (see internal/mip).
func (r Relation) Strict() bool {
	return r == RelLT || r == RelGT
}

// ClauseKind identifies the variant of an AtomicClause.
type ClauseKind int

const (
	ClauseUnspecified ClauseKind = iota
	ClauseLinear                 // weighted sum REL constant (equality included)
	ClauseMembership             // categorical value in a label set
	ClauseExclusion              // categorical value not in a label set
)

func (k ClauseKind) String() string {
	switch k {
	case ClauseLinear:
		return "linear"
	case ClauseMembership:
		return "membership"
	case ClauseExclusion:
		return "exclusion"
	default:
		return "unspecified"
	}
}

// LinTerm is one weighted variable reference in a linear clause.
type LinTerm struct {
	Var  string
	Coef float64
}

// AtomicClause is the normalized unit of rule logic. Exactly one variant is
// populated, selected by Kind: linear clauses use Terms/Rel/Const, set
// clauses use Var/Labels.
//
// Degenerate set clauses are legal values, not errors: a membership over an
// empty label set is always false, an exclusion over an empty label set is
// always true. Both are handled downstream (normalizer, encoder, evaluator).
type AtomicClause struct {
	Kind ClauseKind

	// Linear variant: Terms REL Const. An empty Terms slice is the constant
	// expression 0 REL Const, which collapses to a boolean.
	Terms []LinTerm
	Rel   Relation
	Const float64

	// Set variant.
	Var    string
	Labels []string
}

// Variable describes one name referenced by a rule set. Numeric variables
// take values from a real interval (bounds supplied at encoding time);
// categorical variables take exactly one value from Labels, the closed-world
// domain inferred from every label appearing across the rule set plus any
// declared domain.
type Variable struct {
	Name   string
	Kind   VarKind
	Labels []string // categorical only, first-appearance order
}

// Resource limits enforced during rule-set construction and normalization to
// keep memory and solve times bounded.
const (
	// MaxRules caps the number of rules in a single set. Analysis cost for
	// pairwise queries grows with the square of this number.
	MaxRules = 4096

	// MaxNormalTerms caps the disjunctive terms produced while normalizing a
	// single rule. DNF expansion is a cross product, so nested disjunctions
	// can explode; exceeding the cap is an encoding error, not an OOM.
	MaxNormalTerms = 512

	// MaxClauseTerms caps the weighted variables in one linear clause.
	MaxClauseTerms = 64

	// MaxLabels caps the inferred domain size of a categorical variable.
	// Each label costs one binary solver variable per program.
	MaxLabels = 1024

	// MaxBindings caps the variable bindings accepted by substitution.
	MaxBindings = 256
)
