// internal/mip/program.go
package mip

import (
	"fmt"
	"strings"
)

/*
 * Mixed-integer program model.
 *
 * A Program is the solver-facing artifact: a list of columns (continuous
 * and binary variables) and a list of sparse constraint rows. There is no
 * objective; every query in this module is a pure feasibility question.
 *
 * Rows carry a provenance label (rule name, term and clause position) so a
 * solver failure or a debug dump can be traced back to the rule that
 * produced the row.
 */

// VarType distinguishes relaxable continuous columns from branchable
// binary columns.
type VarType int

const (
	Continuous VarType = iota
	Binary
)

func (t VarType) String() string {
	switch t {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("VarType(%d)", int(t))
	}
}

// Variable is one column of the program.
type Variable struct {
	Name  string
	Type  VarType
	Lower float64
	Upper float64
}

// Sense is the direction of a constraint row.
type Sense int

const (
	SenseLE Sense = iota
	SenseGE
	SenseEQ
)

func (s Sense) String() string {
	switch s {
	case SenseLE:
		return "<="
	case SenseGE:
		return ">="
	case SenseEQ:
		return "=="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Row is one sparse constraint: sum(Coeffs[col] * x[col]) Sense RHS.
type Row struct {
	Coeffs map[int]float64
	Sense  Sense
	RHS    float64
	Label  string
}

// Program is a feasibility MIP under construction. Build it through
// AddVariable/AddRow; the accessor slices are views, not copies, and must
// be treated as read-only.
type Program struct {
	vars []Variable
	rows []Row
	cols map[string]int
}

func NewProgram() *Program {
	return &Program{cols: make(map[string]int)}
}

// AddVariable appends a column and returns its index. Re-adding a name
// returns the existing column unchanged; the first registration wins.
// Binary columns are clamped to [0, 1] regardless of the requested bounds.
func (p *Program) AddVariable(v Variable) int {
	if idx, ok := p.cols[v.Name]; ok {
		return idx
	}
	if v.Type == Binary {
		v.Lower, v.Upper = 0, 1
	}
	idx := len(p.vars)
	p.vars = append(p.vars, v)
	p.cols[v.Name] = idx
	return idx
}

// Column resolves a column index by name.
func (p *Program) Column(name string) (int, bool) {
	idx, ok := p.cols[name]
	return idx, ok
}

// AddRow appends a constraint row.
func (p *Program) AddRow(r Row) {
	p.rows = append(p.rows, r)
}

func (p *Program) NumVars() int { return len(p.vars) }
func (p *Program) NumRows() int { return len(p.rows) }

// Variables returns the columns in declaration order.
func (p *Program) Variables() []Variable { return p.vars }

// Rows returns the constraint rows in insertion order.
func (p *Program) Rows() []Row { return p.rows }

// String renders the program for debug logging, one row per line.
func (p *Program) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "program: %d vars, %d rows\n", len(p.vars), len(p.rows))
	for _, r := range p.rows {
		parts := make([]string, 0, len(r.Coeffs))
		for idx, v := range p.vars {
			if coef, ok := r.Coeffs[idx]; ok {
				parts = append(parts, fmt.Sprintf("%+g*%s", coef, v.Name))
			}
		}
		if len(parts) == 0 {
			parts = append(parts, "0")
		}
		fmt.Fprintf(&b, "  [%s] %s %s %g\n", r.Label, strings.Join(parts, " "), r.Sense, r.RHS)
	}
	return b.String()
}
