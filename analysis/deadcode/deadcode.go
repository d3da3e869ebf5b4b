// Package deadcode finds statements that can be removed from a function
// without changing its behavior: statements that cannot execute because
// a branch condition is a known constant, and assignments without side
// effects whose result is never read.
package deadcode

import (
	"fmt"
	"slices"

	"honnef.co/go/dataflow/analysis/constprop"
	"honnef.co/go/dataflow/analysis/liveness"
	"honnef.co/go/dataflow/ir"
	"honnef.co/go/dataflow/ir/cfg"
)

// Reason says why a statement is dead.
type Reason uint8

const (
	// Unreachable statements cannot execute.
	Unreachable Reason = iota + 1
	// DeadStore statements assign a value that is never read.
	DeadStore
)

func (r Reason) String() string {
	switch r {
	case Unreachable:
		return "unreachable"
	case DeadStore:
		return "dead store"
	default:
		return fmt.Sprintf("Reason(%d)", uint8(r))
	}
}

// Finding is a dead statement.
type Finding struct {
	Stmt   ir.Stmt
	Reason Reason
}

func (f Finding) String() string {
	return fmt.Sprintf("%d: %s (%s)", f.Stmt.Index(), f.Stmt, f.Reason)
}

// Reachable returns the statements reachable from the entry of g when
// branches whose condition is a known constant only follow the edge
// selected by that constant.
func Reachable(g *cfg.CFG, constants *constprop.Result) map[ir.Stmt]bool {
	reachable := map[ir.Stmt]bool{g.Entry(): true}
	queue := []ir.Stmt{g.Entry()}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range g.OutEdges(n) {
			if reachable[e.Target] || !feasible(n, e, constants.InFact(n)) {
				continue
			}
			reachable[e.Target] = true
			queue = append(queue, e.Target)
		}
	}
	return reachable
}

// feasible reports whether control can flow along e, which leaves n.
func feasible(n ir.Stmt, e *cfg.Edge, in *constprop.Fact) bool {
	switch n := n.(type) {
	case *ir.If:
		v := constprop.Evaluate(n.Cond, in)
		if !v.IsConstant() {
			return true
		}
		switch e.Kind {
		case cfg.IfTrue:
			return v.Constant() != 0
		case cfg.IfFalse:
			return v.Constant() == 0
		}
		return true
	case *ir.Switch:
		v := constprop.Evaluate(n.Var, in)
		if !v.IsConstant() {
			return true
		}
		switch e.Kind {
		case cfg.SwitchCase:
			return e.CaseValue == v.Constant()
		case cfg.SwitchDefault:
			return !slices.Contains(n.CaseValues(), v.Constant())
		}
		return true
	default:
		return true
	}
}

// HasNoSideEffect reports whether evaluating e can neither fail nor
// modify state. Allocations, casts, field and array accesses, calls and
// unknown expressions may have side effects, as may division and
// remainder, which fail on a zero divisor.
func HasNoSideEffect(e ir.Exp) bool {
	switch e := e.(type) {
	case *ir.Var, *ir.IntLiteral:
		return true
	case *ir.BinaryExp:
		return e.Op != ir.DIV && e.Op != ir.REM
	case *ir.NewExp, *ir.CastExp, *ir.FieldAccess, *ir.ArrayAccess, *ir.InvokeExp, *ir.OtherExp:
		return false
	default:
		panic(fmt.Sprintf("unexpected expression %T", e))
	}
}

// Find returns the dead statements of g, ordered by index. constants
// and live must be the results of constant propagation and live
// variable analysis on g.
func Find(g *cfg.CFG, constants *constprop.Result, live *liveness.Result) ([]Finding, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}
	if constants == nil || live == nil {
		return nil, fmt.Errorf("%s: missing analysis result", g.Function.Name)
	}

	reachable := Reachable(g, constants)
	var out []Finding
	for _, s := range g.Function.Stmts {
		if !reachable[s] {
			out = append(out, Finding{s, Unreachable})
			continue
		}
		if a, ok := s.(*ir.Assign); ok && HasNoSideEffect(a.RHS) && !live.OutFact(s).Contains(a.LHS) {
			out = append(out, Finding{s, DeadStore})
		}
	}
	slices.SortStableFunc(out, func(a, b Finding) int { return a.Stmt.Index() - b.Stmt.Index() })
	return out, nil
}

// Detect returns the dead statements of g, ordered by index.
func Detect(g *cfg.CFG, constants *constprop.Result, live *liveness.Result) ([]ir.Stmt, error) {
	findings, err := Find(g, constants, live)
	if err != nil {
		return nil, err
	}
	out := make([]ir.Stmt, len(findings))
	for i, f := range findings {
		out[i] = f.Stmt
	}
	return out, nil
}

// Options select which kinds of dead statements Analyze reports.
type Options struct {
	Constprop         constprop.Config
	ReportUnreachable bool
	ReportDeadStores  bool
}

// DefaultOptions reports all dead statements.
var DefaultOptions = Options{ReportUnreachable: true, ReportDeadStores: true}

// Analyze builds the control-flow graph of fn, runs constant
// propagation and liveness analysis, and returns the dead statements
// selected by opts.
func Analyze(fn *ir.Function, opts Options) ([]Finding, error) {
	g, err := cfg.New(fn)
	if err != nil {
		return nil, err
	}
	constants, err := opts.Constprop.Analyze(g)
	if err != nil {
		return nil, err
	}
	live, err := liveness.Analyze(g)
	if err != nil {
		return nil, err
	}
	findings, err := Find(g, constants, live)
	if err != nil {
		return nil, err
	}
	out := findings[:0]
	for _, f := range findings {
		switch {
		case f.Reason == Unreachable && opts.ReportUnreachable,
			f.Reason == DeadStore && opts.ReportDeadStores:
			out = append(out, f)
		}
	}
	return out, nil
}
