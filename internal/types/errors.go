package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for ruleproof operations.
var (
	// ErrDuplicateRule indicates two rules in one set share a name.
	ErrDuplicateRule = errors.New("duplicate rule name")

	// ErrEmptyRuleName indicates a rule without a name.
	ErrEmptyRuleName = errors.New("rule name is empty")

	// ErrNilExpr indicates a rule without an expression body.
	ErrNilExpr = errors.New("rule expression is nil")

	// ErrKindMismatch indicates a variable used both numerically and
	// categorically, or a binding whose value does not match the kind.
	ErrKindMismatch = errors.New("variable kind mismatch")

	// ErrUnknownRelation indicates a comparison with an unspecified or
	// unsupported relation.
	ErrUnknownRelation = errors.New("unknown comparison relation")

	// ErrUnknownClauseKind indicates a clause variant the encoder cannot
	// represent in the linear vocabulary.
	ErrUnknownClauseKind = errors.New("unknown clause kind")

	// ErrUnknownVariable indicates a reference to a variable the rule set
	// does not contain.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrUnboundVariable indicates evaluation reached a variable the
	// bindings do not cover.
	ErrUnboundVariable = errors.New("unbound variable")

	// ErrRuleNotFound indicates a query naming a rule outside the set.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrTooManyRules indicates a set exceeds MaxRules.
	ErrTooManyRules = errors.New("too many rules")

	// ErrTermLimit indicates DNF expansion exceeded MaxNormalTerms.
	ErrTermLimit = errors.New("normal form exceeds term limit")

	// ErrTooManyClauseTerms indicates a linear clause exceeds MaxClauseTerms.
	ErrTooManyClauseTerms = errors.New("linear clause has too many terms")

	// ErrTooManyLabels indicates a categorical domain exceeds MaxLabels.
	ErrTooManyLabels = errors.New("categorical domain has too many labels")

	// ErrTooManyBindings indicates substitution was given more than
	// MaxBindings values.
	ErrTooManyBindings = errors.New("too many bindings")

	// ErrLocalizationFailed indicates an infeasible set where no single rule
	// removal and no pair removal restores feasibility.
	ErrLocalizationFailed = errors.New("no single or pair removal restores feasibility")

	// ErrSimplifyNotConverged indicates fixed-point simplification hit its
	// iteration cap without stabilizing.
	ErrSimplifyNotConverged = errors.New("simplification did not converge")
)

// DefinitionError reports a malformed rule: bad clause, inconsistent variable
// kind, duplicate name. It is local to one rule; in lenient mode the rest of
// the set is still processed.
type DefinitionError struct {
	Rule   string
	Clause int // index of the offending clause within the rule, -1 if not clause-specific
	Err    error
}

func (e *DefinitionError) Error() string {
	if e.Clause >= 0 {
		return fmt.Sprintf("rule %q clause %d: %v", e.Rule, e.Clause, e.Err)
	}
	return fmt.Sprintf("rule %q: %v", e.Rule, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }

// EncodingError reports a construct that cannot be represented in the
// linear/MIP vocabulary. It is raised before any solver call is attempted.
type EncodingError struct {
	Rule   string
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("cannot encode rule %q: %s", e.Rule, e.Reason)
	}
	return fmt.Sprintf("cannot encode program: %s", e.Reason)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// SolverError reports failure at the solver boundary: timeout, numerical
// breakdown, resource limit. It is never conflated with an infeasible
// verdict, and no query derives a domain answer from it.
type SolverError struct {
	Err error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver: %v", e.Err)
}

func (e *SolverError) Unwrap() error { return e.Err }
