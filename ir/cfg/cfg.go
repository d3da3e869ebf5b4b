// Package cfg builds and validates control-flow graphs over the
// statements of an ir.Function.
//
// Every graph has a synthetic entry and exit node. The entry node has
// no predecessors and a single edge of kind Entry to the first
// statement. Statements that leave the function, and the last statement
// if control can fall off the end, have an edge to the exit node.
package cfg

import (
	"errors"
	"fmt"
	"strings"

	"honnef.co/go/dataflow/ir"
)

// ErrMalformed is wrapped by all errors that report a graph violating
// the structural requirements of the analyses.
var ErrMalformed = errors.New("malformed control-flow graph")

type EdgeKind uint8

const (
	Entry EdgeKind = iota
	Normal
	IfTrue
	IfFalse
	SwitchCase
	SwitchDefault
)

func (k EdgeKind) String() string {
	switch k {
	case Entry:
		return "ENTRY"
	case Normal:
		return "NORMAL"
	case IfTrue:
		return "IF_TRUE"
	case IfFalse:
		return "IF_FALSE"
	case SwitchCase:
		return "SWITCH_CASE"
	case SwitchDefault:
		return "SWITCH_DEFAULT"
	default:
		return fmt.Sprintf("EdgeKind(%d)", uint8(k))
	}
}

// Edge is a directed control-flow edge.
type Edge struct {
	Kind   EdgeKind
	Source ir.Stmt
	Target ir.Stmt
	// CaseValue is only meaningful for edges of kind SwitchCase.
	CaseValue int32
}

func (e *Edge) String() string {
	if e.Kind == SwitchCase {
		return fmt.Sprintf("%s(%d) %s -> %s", e.Kind, e.CaseValue, nodeName(e.Source), nodeName(e.Target))
	}
	return fmt.Sprintf("%s %s -> %s", e.Kind, nodeName(e.Source), nodeName(e.Target))
}

func nodeName(n ir.Stmt) string {
	if n.Index() < 0 {
		return n.String()
	}
	return fmt.Sprintf("%d: %s", n.Index(), n)
}

// CFG is a control-flow graph. It is immutable once built and may be
// shared between concurrent readers.
type CFG struct {
	Function *ir.Function

	entry *ir.Nop
	exit  *ir.Nop
	nodes []ir.Stmt
	ids   map[ir.Stmt]int
	out   [][]*Edge
	in    [][]*Edge
}

// Entry returns the synthetic entry node.
func (g *CFG) Entry() ir.Stmt { return g.entry }

// Exit returns the synthetic exit node.
func (g *CFG) Exit() ir.Stmt { return g.exit }

// Nodes returns all nodes in a stable order: the entry node, the
// function's statements by index, the exit node.
func (g *CFG) Nodes() []ir.Stmt { return g.nodes }

// Contains reports whether n is a node of g.
func (g *CFG) Contains(n ir.Stmt) bool {
	_, ok := g.ids[n]
	return ok
}

// ID returns n's position in Nodes.
func (g *CFG) ID(n ir.Stmt) int {
	id, ok := g.ids[n]
	if !ok {
		panic(fmt.Sprintf("%s is not a node of the graph", n))
	}
	return id
}

// OutEdges returns the edges leaving n.
func (g *CFG) OutEdges(n ir.Stmt) []*Edge { return g.out[g.ID(n)] }

// InEdges returns the edges entering n.
func (g *CFG) InEdges(n ir.Stmt) []*Edge { return g.in[g.ID(n)] }

// Succs returns the distinct successors of n, in edge order.
func (g *CFG) Succs(n ir.Stmt) []ir.Stmt {
	return distinct(g.OutEdges(n), func(e *Edge) ir.Stmt { return e.Target })
}

// Preds returns the distinct predecessors of n, in edge order.
func (g *CFG) Preds(n ir.Stmt) []ir.Stmt {
	return distinct(g.InEdges(n), func(e *Edge) ir.Stmt { return e.Source })
}

func distinct(edges []*Edge, fn func(*Edge) ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, 0, len(edges))
outer:
	for _, e := range edges {
		n := fn(e)
		for _, o := range out {
			if o == n {
				continue outer
			}
		}
		out = append(out, n)
	}
	return out
}

func (g *CFG) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cfg %s\n", g.Function.Name)
	for _, edges := range g.out {
		for _, e := range edges {
			fmt.Fprintf(&sb, "\t%s\n", e)
		}
	}
	return sb.String()
}

// Builder assembles a CFG edge by edge. Most users want New instead;
// Builder exists for front ends that compute their own edges.
type Builder struct {
	g *CFG
}

// NewBuilder returns a builder for a graph over the statements of fn,
// with no edges.
func NewBuilder(fn *ir.Function) *Builder {
	g := &CFG{
		Function: fn,
		entry:    ir.NewNop("entry"),
		exit:     ir.NewNop("exit"),
		ids:      map[ir.Stmt]int{},
	}
	g.nodes = make([]ir.Stmt, 0, len(fn.Stmts)+2)
	g.nodes = append(g.nodes, g.entry)
	g.nodes = append(g.nodes, fn.Stmts...)
	g.nodes = append(g.nodes, g.exit)
	for i, n := range g.nodes {
		g.ids[n] = i
	}
	g.out = make([][]*Edge, len(g.nodes))
	g.in = make([][]*Edge, len(g.nodes))
	return &Builder{g: g}
}

// Entry returns the entry node of the graph under construction.
func (b *Builder) Entry() ir.Stmt { return b.g.entry }

// Exit returns the exit node of the graph under construction.
func (b *Builder) Exit() ir.Stmt { return b.g.exit }

// AddEdge adds an edge. Endpoints that aren't nodes of the graph are
// reported by Finish.
func (b *Builder) AddEdge(e *Edge) {
	src, ok1 := b.g.ids[e.Source]
	dst, ok2 := b.g.ids[e.Target]
	if !ok1 || !ok2 {
		// Remember the edge on the entry node so that Check can report it.
		b.g.out[0] = append(b.g.out[0], e)
		return
	}
	b.g.out[src] = append(b.g.out[src], e)
	b.g.in[dst] = append(b.g.in[dst], e)
}

// Finish checks the graph and returns it.
func (b *Builder) Finish() (*CFG, error) {
	g := b.g
	b.g = nil
	if err := g.Check(); err != nil {
		return nil, err
	}
	return g, nil
}

// New builds the control-flow graph of fn. Jump targets of fn must have
// been resolved with ir.Function.Finish.
func New(fn *ir.Function) (*CFG, error) {
	b := NewBuilder(fn)
	stmts := fn.Stmts
	next := func(i int) ir.Stmt {
		if i+1 < len(stmts) {
			return stmts[i+1]
		}
		return b.Exit()
	}

	if len(stmts) == 0 {
		b.AddEdge(&Edge{Kind: Entry, Source: b.Entry(), Target: b.Exit()})
	} else {
		b.AddEdge(&Edge{Kind: Entry, Source: b.Entry(), Target: stmts[0]})
	}
	for i, s := range stmts {
		switch s := s.(type) {
		case *ir.Return:
			b.AddEdge(&Edge{Kind: Normal, Source: s, Target: b.Exit()})
		case *ir.Goto:
			if s.TargetStmt == nil {
				return nil, fmt.Errorf("%w: %s: unresolved target of %q", ErrMalformed, fn.Name, s)
			}
			b.AddEdge(&Edge{Kind: Normal, Source: s, Target: s.TargetStmt})
		case *ir.If:
			if s.TargetStmt == nil {
				return nil, fmt.Errorf("%w: %s: unresolved target of %q", ErrMalformed, fn.Name, s)
			}
			b.AddEdge(&Edge{Kind: IfTrue, Source: s, Target: s.TargetStmt})
			b.AddEdge(&Edge{Kind: IfFalse, Source: s, Target: next(i)})
		case *ir.Switch:
			for _, c := range s.Cases {
				if c.TargetStmt == nil {
					return nil, fmt.Errorf("%w: %s: unresolved target of %q", ErrMalformed, fn.Name, s)
				}
				b.AddEdge(&Edge{Kind: SwitchCase, Source: s, Target: c.TargetStmt, CaseValue: c.Value})
			}
			if s.DefaultTarget == nil {
				return nil, fmt.Errorf("%w: %s: unresolved target of %q", ErrMalformed, fn.Name, s)
			}
			b.AddEdge(&Edge{Kind: SwitchDefault, Source: s, Target: s.DefaultTarget})
		case *ir.Assign, *ir.Invoke, *ir.Nop:
			b.AddEdge(&Edge{Kind: Normal, Source: s, Target: next(i)})
		default:
			panic(fmt.Sprintf("unexpected statement %T", s))
		}
	}
	return b.Finish()
}

// Check verifies the structural requirements that the analyses rely
// on. All errors wrap ErrMalformed.
func (g *CFG) Check() error {
	if g == nil {
		return fmt.Errorf("%w: nil graph", ErrMalformed)
	}
	errorf := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrMalformed, g.Function.Name, fmt.Sprintf(format, args...))
	}

	for i, n := range g.nodes {
		for _, e := range g.out[i] {
			if !g.Contains(e.Source) || !g.Contains(e.Target) {
				return errorf("edge %s has an endpoint outside the graph", e)
			}
			if e.Source != n {
				return errorf("edge %s is attached to %s", e, nodeName(n))
			}
		}
	}

	if len(g.in[0]) != 0 {
		return errorf("entry node has %d predecessors", len(g.in[0]))
	}
	if len(g.out[0]) == 0 {
		return errorf("entry node has no successors")
	}
	if len(g.out[len(g.nodes)-1]) != 0 {
		return errorf("exit node has successors")
	}

	for i, n := range g.nodes {
		if i == 0 || i == len(g.nodes)-1 {
			continue
		}
		edges := g.out[i]
		if len(edges) == 0 {
			return errorf("statement %s has no successors", nodeName(n))
		}
		counts := map[EdgeKind]int{}
		for _, e := range edges {
			counts[e.Kind]++
			if e.Kind == Entry {
				return errorf("edge %s: only the entry node may have ENTRY edges", e)
			}
		}
		switch n := n.(type) {
		case *ir.If:
			if counts[IfTrue] != 1 || counts[IfFalse] != 1 || len(edges) != 2 {
				return errorf("conditional branch %s needs exactly one IF_TRUE and one IF_FALSE edge, has %v", nodeName(n), edges)
			}
		case *ir.Switch:
			if counts[SwitchDefault] != 1 {
				return errorf("switch %s needs exactly one SWITCH_DEFAULT edge, has %d", nodeName(n), counts[SwitchDefault])
			}
			seen := map[int32]bool{}
			for _, e := range edges {
				switch e.Kind {
				case SwitchCase:
					if seen[e.CaseValue] {
						return errorf("switch %s has duplicate case %d", nodeName(n), e.CaseValue)
					}
					seen[e.CaseValue] = true
				case SwitchDefault:
				default:
					return errorf("switch %s has edge of kind %s", nodeName(n), e.Kind)
				}
			}
			declared := n.CaseValues()
			if len(declared) != len(seen) {
				return errorf("switch %s declares %d cases but has %d case edges", nodeName(n), len(declared), len(seen))
			}
			for _, v := range declared {
				if !seen[v] {
					return errorf("switch %s has no edge for case %d", nodeName(n), v)
				}
			}
		default:
			if counts[IfTrue]+counts[IfFalse]+counts[SwitchCase]+counts[SwitchDefault] != 0 {
				return errorf("statement %s has branch edges but isn't a branch", nodeName(n))
			}
		}
	}
	return nil
}
