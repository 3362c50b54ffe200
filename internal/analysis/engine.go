// internal/analysis/engine.go
package analysis

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/solatis/ruleproof/internal/mip"
	"github.com/solatis/ruleproof/internal/rules"
	"github.com/solatis/ruleproof/internal/solver"
	"github.com/solatis/ruleproof/internal/types"
)

/*
 * Analysis engine.
 *
 * Composes the normalizer, the encoder and the solver into the query
 * surface: joint feasibility, infeasibility localization, implication,
 * contradiction, substitution and fixed-point simplification.
 *
 * Queries run against immutable RuleSet snapshots, so per-candidate checks
 * (one per removed rule, one per pair) fan out concurrently without any
 * locking beyond the normal-form cache. Each check builds its own program
 * and owns it exclusively.
 *
 * Normal forms are cached per Rule pointer. Rules are immutable and
 * derived sets share Rule entries, so a cache hit after Without or a kept
 * rule after substitution is both safe and the common case.
 *
 * Every solver call gets a deadline. A deadline hit is a SolverError and
 * aborts the whole query; it never degrades into a verdict.
 */

const (
	// DefaultSolveTimeout bounds one solver call.
	DefaultSolveTimeout = 30 * time.Second

	// DefaultMaxParallel bounds concurrent solver calls per query.
	DefaultMaxParallel = 4
)

// Options tunes the engine. Zero values select the defaults.
type Options struct {
	// Epsilon widens strict inequalities in the encoding.
	Epsilon float64

	// DefaultLower and DefaultUpper bound numeric variables; VarBounds
	// overrides individual ones. Bounds feed the per-row big-M, so they
	// are a soundness parameter, not a tuning knob.
	DefaultLower float64
	DefaultUpper float64
	VarBounds    map[string]mip.Bounds

	// SolveTimeout bounds each solver call.
	SolveTimeout time.Duration

	// MaxParallel bounds concurrent candidate checks.
	MaxParallel int

	// Backend overrides the default simplex solver. Wrap non-reentrant
	// backends in solver.Serialized before passing them in.
	Backend solver.Solver
}

// Engine answers structural queries about rule sets.
type Engine struct {
	enc     *mip.Encoder
	backend solver.Solver
	timeout time.Duration
	par     int

	mu    sync.Mutex
	forms map[*types.Rule]*rules.NormalForm
	negs  map[*types.Rule]*rules.NormalForm
}

func New(opts Options) *Engine {
	if opts.SolveTimeout <= 0 {
		opts.SolveTimeout = DefaultSolveTimeout
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	backend := opts.Backend
	if backend == nil {
		backend = solver.NewSimplex(solver.SimplexOptions{})
	}
	return &Engine{
		enc: mip.NewEncoder(mip.Options{
			Epsilon:      opts.Epsilon,
			DefaultLower: opts.DefaultLower,
			DefaultUpper: opts.DefaultUpper,
			VarBounds:    opts.VarBounds,
		}),
		backend: backend,
		timeout: opts.SolveTimeout,
		par:     opts.MaxParallel,
	}
}

// form returns the cached normal form of a rule, computing it on first use.
func (e *Engine) form(r *types.Rule) (*rules.NormalForm, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.forms == nil {
		e.forms = make(map[*types.Rule]*rules.NormalForm)
	}
	if nf, ok := e.forms[r]; ok {
		return nf, nil
	}
	nf, err := rules.Normalize(r)
	if err != nil {
		return nil, err
	}
	e.forms[r] = nf
	return nf, nil
}

// negForm returns the cached normal form of a rule's negation.
func (e *Engine) negForm(r *types.Rule) (*rules.NormalForm, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.negs == nil {
		e.negs = make(map[*types.Rule]*rules.NormalForm)
	}
	if nf, ok := e.negs[r]; ok {
		return nf, nil
	}
	nf, err := rules.NormalizeExpr(rules.NegateExpr(r.Expr))
	if err != nil {
		return nil, attachNegName(err, r.Name)
	}
	e.negs[r] = nf
	return nf, nil
}

func attachNegName(err error, name string) error {
	if e, ok := err.(*types.EncodingError); ok && e.Rule == "" {
		return &types.EncodingError{Rule: name, Reason: e.Reason, Err: e.Err}
	}
	if e, ok := err.(*types.DefinitionError); ok && e.Rule == "" {
		return &types.DefinitionError{Rule: name, Clause: e.Clause, Err: e.Err}
	}
	return err
}

// namedForms resolves the normal forms for a subset of the set's rules.
func (e *Engine) namedForms(rs *types.RuleSet, names []string) ([]mip.RuleForm, error) {
	out := make([]mip.RuleForm, 0, len(names))
	for _, name := range names {
		r, ok := rs.Rule(name)
		if !ok {
			return nil, types.ErrRuleNotFound
		}
		nf, err := e.form(r)
		if err != nil {
			return nil, err
		}
		out = append(out, mip.RuleForm{Name: name, Form: nf})
	}
	return out, nil
}

// solve encodes the given forms over the set's variable universe and runs
// the backend under the per-call deadline.
func (e *Engine) solve(ctx context.Context, rs *types.RuleSet, forms []mip.RuleForm) (solver.Result, error) {
	prog, err := e.enc.Encode(rs, forms)
	if err != nil {
		return solver.Result{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.backend.Solve(ctx, prog)
}

// feasibleSubset reports whether the named rules are jointly satisfiable
// within the set's variable universe.
func (e *Engine) feasibleSubset(ctx context.Context, rs *types.RuleSet, names []string) (bool, error) {
	forms, err := e.namedForms(rs, names)
	if err != nil {
		return false, err
	}
	res, err := e.solve(ctx, rs, forms)
	if err != nil {
		return false, err
	}
	return res.Status == solver.StatusFeasible, nil
}

// parallelCheck evaluates n independent candidate checks with bounded
// concurrency and returns the verdicts in candidate order. The first error
// cancels all remaining checks: partial verdicts are never interpreted.
func (e *Engine) parallelCheck(ctx context.Context, n int, check func(ctx context.Context, i int) (bool, error)) ([]bool, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.par)
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			ok, err := check(ctx, i)
			if err != nil {
				return err
			}
			out[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// probeName returns a form name that cannot collide with any rule name in
// the set, so synthetic selector columns stay distinct from rule columns.
func probeName(rs *types.RuleSet, base string) string {
	name := base
	for {
		if _, exists := rs.Rule(name); !exists {
			return name
		}
		name += "'"
	}
}
