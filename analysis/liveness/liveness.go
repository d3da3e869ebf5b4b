// Package liveness implements live-variable analysis.
//
// A variable is live at a point if some path from that point reads it
// before redefining it. The analysis is a backward may-analysis; the
// meet operator is set union.
package liveness

import (
	"fmt"
	"slices"
	"strings"

	"honnef.co/go/dataflow/analysis/dfa"
	"honnef.co/go/dataflow/ir"
	"honnef.co/go/dataflow/ir/cfg"
)

// SetFact is a set of variables.
type SetFact struct {
	m map[*ir.Var]struct{}
}

func NewSetFact(vs ...*ir.Var) *SetFact {
	f := &SetFact{m: make(map[*ir.Var]struct{}, len(vs))}
	for _, v := range vs {
		f.Add(v)
	}
	return f
}

func (f *SetFact) Contains(v *ir.Var) bool {
	_, ok := f.m[v]
	return ok
}

// Add adds v and reports whether the set changed.
func (f *SetFact) Add(v *ir.Var) bool {
	if _, ok := f.m[v]; ok {
		return false
	}
	f.m[v] = struct{}{}
	return true
}

// Remove removes v and reports whether the set changed.
func (f *SetFact) Remove(v *ir.Var) bool {
	if _, ok := f.m[v]; !ok {
		return false
	}
	delete(f.m, v)
	return true
}

// Union adds all elements of o and reports whether the set changed.
func (f *SetFact) Union(o *SetFact) bool {
	changed := false
	for v := range o.m {
		if f.Add(v) {
			changed = true
		}
	}
	return changed
}

func (f *SetFact) Copy() *SetFact {
	out := &SetFact{m: make(map[*ir.Var]struct{}, len(f.m))}
	for v := range f.m {
		out.m[v] = struct{}{}
	}
	return out
}

func (f *SetFact) Equal(o *SetFact) bool {
	if len(f.m) != len(o.m) {
		return false
	}
	for v := range f.m {
		if _, ok := o.m[v]; !ok {
			return false
		}
	}
	return true
}

// Set replaces the contents of f with those of o and reports whether f
// changed.
func (f *SetFact) Set(o *SetFact) bool {
	if f.Equal(o) {
		return false
	}
	clear(f.m)
	for v := range o.m {
		f.m[v] = struct{}{}
	}
	return true
}

func (f *SetFact) Len() int { return len(f.m) }

// Vars returns the elements ordered by their index.
func (f *SetFact) Vars() []*ir.Var {
	out := make([]*ir.Var, 0, len(f.m))
	for v := range f.m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b *ir.Var) int { return a.Index - b.Index })
	return out
}

func (f *SetFact) String() string {
	names := make([]string, 0, len(f.m))
	for _, v := range f.Vars() {
		names = append(names, v.Name)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Result is the solved analysis. OutFact returns the variables live
// after a statement.
type Result = dfa.Result[ir.Stmt, *SetFact]

// Analysis implements dfa.Analysis for live variables.
type Analysis struct{}

var _ dfa.Analysis[ir.Stmt, *SetFact] = Analysis{}

func (Analysis) IsForward() bool { return false }

// NewBoundaryFact returns the OUT fact of the exit node: nothing is
// live after the function returns.
func (Analysis) NewBoundaryFact(dfa.Graph[ir.Stmt]) *SetFact { return NewSetFact() }

func (Analysis) NewInitialFact() *SetFact { return NewSetFact() }

func (Analysis) MeetInto(fact, target *SetFact) { target.Union(fact) }

// TransferNode computes in = (out - def) ∪ uses.
func (Analysis) TransferNode(s ir.Stmt, in, out *SetFact) bool {
	next := out.Copy()
	if v := s.Def(); v != nil {
		next.Remove(v)
	}
	for _, use := range s.Uses() {
		if v, ok := use.(*ir.Var); ok {
			next.Add(v)
		}
	}
	return in.Set(next)
}

// Analyze computes the live variables of g.
func Analyze(g *cfg.CFG) (*Result, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}
	res, err := (&dfa.Solver[ir.Stmt, *SetFact]{}).Solve(g, Analysis{})
	if err != nil {
		return nil, fmt.Errorf("liveness of %s: %w", g.Function.Name, err)
	}
	return res, nil
}
