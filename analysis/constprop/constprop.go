// Package constprop implements intraprocedural constant propagation
// for integer-like variables (byte, short, int, char and boolean).
//
// The analysis is a forward data-flow analysis over a flat lattice
// (UNDEF ⊑ constant ⊑ NAC). Variables of any other type are not tracked
// and make every expression that reads them NAC.
package constprop

import (
	"fmt"

	"honnef.co/go/dataflow/analysis/dfa"
	"honnef.co/go/dataflow/ir"
	"honnef.co/go/dataflow/ir/cfg"
)

// Result is the solved analysis: the IN and OUT fact of every node.
type Result = dfa.Result[ir.Stmt, *Fact]

// Analysis implements dfa.Analysis for constant propagation.
type Analysis struct {
	// CheckMonotone makes TransferNode panic if an OUT fact ever moves
	// down the lattice.
	CheckMonotone bool
}

var _ dfa.Analysis[ir.Stmt, *Fact] = (*Analysis)(nil)

func (*Analysis) IsForward() bool { return true }

// NewBoundaryFact returns the IN fact of the entry node: every
// integer-like variable that the function defines or uses is NAC,
// because nothing is known about values flowing in from the caller.
func (*Analysis) NewBoundaryFact(g dfa.Graph[ir.Stmt]) *Fact {
	f := NewFact()
	mark := func(v *ir.Var) {
		if v.CanHoldInt() {
			f.Update(v, NAC())
		}
	}
	for _, n := range g.Nodes() {
		mark(n.Def())
		for _, use := range n.Uses() {
			if v, ok := use.(*ir.Var); ok {
				mark(v)
			}
		}
	}
	if g, ok := g.(*cfg.CFG); ok {
		for _, p := range g.Function.Params {
			mark(p)
		}
	}
	return f
}

func (*Analysis) NewInitialFact() *Fact { return NewFact() }

func (*Analysis) MeetInto(fact, target *Fact) {
	for v, val := range fact.m {
		target.Update(v, Meet(val, target.Get(v)))
	}
}

func (a *Analysis) TransferNode(s ir.Stmt, in, out *Fact) bool {
	next := in.Copy()
	if v := s.Def(); v.CanHoldInt() {
		next.Update(v, definedValue(s, in))
	}
	if a.CheckMonotone {
		for v, old := range out.m {
			if nv := next.Get(v); !lessEqual(old, nv) {
				panic(fmt.Sprintf("transfer function isn't monotonic; Transfer(%s)[%s] = %s, was %s", s, v, nv, old))
			}
		}
	}
	return out.Set(next)
}

func definedValue(s ir.Stmt, in *Fact) Value {
	switch s := s.(type) {
	case *ir.Assign:
		return Evaluate(s.RHS, in)
	case *ir.Invoke:
		return NAC()
	default:
		panic(fmt.Sprintf("unexpected definition %T", s))
	}
}

// Config controls how the analysis is run.
type Config struct {
	// MaxTransfers limits the work done by the solver. Zero means no limit.
	MaxTransfers int
	Debug        bool
}

// Analyze runs constant propagation on g with the default configuration.
func Analyze(g *cfg.CFG) (*Result, error) {
	return (&Config{}).Analyze(g)
}

// Analyze runs constant propagation on g.
func (c *Config) Analyze(g *cfg.CFG) (*Result, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}
	s := &dfa.Solver[ir.Stmt, *Fact]{MaxTransfers: c.MaxTransfers, Debug: c.Debug}
	res, err := s.Solve(g, &Analysis{CheckMonotone: c.Debug})
	if err != nil {
		return nil, fmt.Errorf("constant propagation of %s: %w", g.Function.Name, err)
	}
	return res, nil
}

// Lattice renders the lattice formed by vals, UNDEF and NAC in Graphviz
// format.
func Lattice(vals ...Value) string {
	states := append([]Value{Undefined()}, vals...)
	states = append(states, NAC())
	return dfa.Dot[Value](Meet, states, Undefined(), NAC())
}
