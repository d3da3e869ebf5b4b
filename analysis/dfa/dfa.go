// Package dfa provides types and functions for implementing data-flow analyses.
//
// An analysis supplies four hooks (boundary fact, initial fact, meet and
// transfer) and the solver iterates them over a graph until no transfer
// reports a change. Facts are owned by the solver: every node has its own
// IN and OUT fact and the solver never shares a fact between two nodes.
package dfa

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
)

// Graph is the view of a control-flow graph that the solver needs.
type Graph[N comparable] interface {
	Entry() N
	Exit() N
	// Nodes returns all nodes in a stable order.
	Nodes() []N
	Succs(N) []N
	Preds(N) []N
}

// Analysis describes a monotone data-flow problem over facts of type F.
//
// For forward analyses, the boundary fact is the IN fact of the entry
// node and TransferNode computes out from in. For backward analyses,
// the boundary fact is the OUT fact of the exit node and TransferNode
// computes in from out. TransferNode reports whether the fact it
// computed changed.
//
// MeetInto merges fact into target. It must be commutative, associative
// and idempotent in its effect on target, and it must not modify fact.
type Analysis[N comparable, F any] interface {
	IsForward() bool
	NewBoundaryFact(g Graph[N]) F
	NewInitialFact() F
	MeetInto(fact, target F)
	TransferNode(node N, in, out F) bool
}

// ErrTooManyTransfers is returned by Solver.Solve when the transfer
// limit has been exceeded.
var ErrTooManyTransfers = errors.New("too many transfers")

// Stats describes the work done by a solver run.
type Stats struct {
	// Transfers is the number of calls to TransferNode.
	Transfers int
	// Changes is the number of transfers that reported a change.
	Changes int
}

// Result holds the solved facts of an analysis. It must not be modified.
type Result[N comparable, F any] struct {
	in    map[N]F
	out   map[N]F
	Stats Stats
}

// InFact returns the fact at the entry of n.
func (r *Result[N, F]) InFact(n N) F { return r.in[n] }

// OutFact returns the fact at the exit of n.
func (r *Result[N, F]) OutFact(n N) F { return r.out[n] }

// Solver runs analyses using a worklist algorithm. The zero value is
// ready to use.
type Solver[N comparable, F any] struct {
	// MaxTransfers limits the number of transfers. Zero means no limit.
	MaxTransfers int
	// Debug enables logging of every transfer.
	Debug bool
}

// Solve runs a with the default solver. It never fails.
func Solve[N comparable, F any](g Graph[N], a Analysis[N, F]) *Result[N, F] {
	res, err := (&Solver[N, F]{}).Solve(g, a)
	if err != nil {
		// unreachable without a transfer limit
		panic(err)
	}
	return res
}

var debugMu sync.Mutex

func (s *Solver[N, F]) debugf(f string, args ...any) {
	if s.Debug {
		debugMu.Lock()
		log.Printf(f, args...)
		debugMu.Unlock()
	}
}

// Solve runs a on g until it reaches a fixed point.
func (s *Solver[N, F]) Solve(g Graph[N], a Analysis[N, F]) (*Result[N, F], error) {
	nodes := g.Nodes()
	res := &Result[N, F]{
		in:  make(map[N]F, len(nodes)),
		out: make(map[N]F, len(nodes)),
	}
	for _, n := range nodes {
		res.in[n] = a.NewInitialFact()
		res.out[n] = a.NewInitialFact()
	}

	forward := a.IsForward()
	var boundary N
	if forward {
		boundary = g.Entry()
		res.in[boundary] = a.NewBoundaryFact(g)
	} else {
		boundary = g.Exit()
		res.out[boundary] = a.NewBoundaryFact(g)
	}

	// The worklist is a FIFO queue seeded in node order. queued tracks
	// membership so that no node is in the queue twice.
	queue := make([]N, 0, len(nodes))
	queued := make(map[N]bool, len(nodes))
	if forward {
		queue = append(queue, nodes...)
	} else {
		for i := len(nodes) - 1; i >= 0; i-- {
			queue = append(queue, nodes[i])
		}
	}
	for _, n := range queue {
		queued[n] = true
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		queued[n] = false

		in, out := res.in[n], res.out[n]
		var changed bool
		if forward {
			if n != boundary {
				for _, p := range g.Preds(n) {
					a.MeetInto(res.out[p], in)
				}
			}
			changed = a.TransferNode(n, in, out)
		} else {
			if n != boundary {
				for _, succ := range g.Succs(n) {
					a.MeetInto(res.in[succ], out)
				}
			}
			changed = a.TransferNode(n, in, out)
		}
		res.Stats.Transfers++
		if forward {
			s.debugf("transfer(%v): in = %v, out = %v, changed = %t", n, in, out, changed)
		} else {
			s.debugf("transfer(%v): out = %v, in = %v, changed = %t", n, out, in, changed)
		}

		if s.MaxTransfers > 0 && res.Stats.Transfers > s.MaxTransfers {
			return nil, fmt.Errorf("%w: limit of %d exceeded", ErrTooManyTransfers, s.MaxTransfers)
		}
		if !changed {
			continue
		}
		res.Stats.Changes++
		var next []N
		if forward {
			next = g.Succs(n)
		} else {
			next = g.Preds(n)
		}
		for _, m := range next {
			if !queued[m] {
				queued[m] = true
				queue = append(queue, m)
			}
		}
	}
	s.debugf("solved in %d transfers, %d changes", res.Stats.Transfers, res.Stats.Changes)
	return res, nil
}

// Join defines the [∨] operation for a [join-semilattice]. It must implement a commutative and associative binary operation
// that returns the least upper bound of two states from S.
//
// Code that calls Join functions is expected to handle the [⊥ and ⊤ elements], as well as implement idempotency. That is,
// the following properties will be enforced:
//
//   - x ∨ ⊥ = x
//   - x ∨ ⊤ = ⊤
//   - x ∨ x = x
//
// [∨]: https://en.wikipedia.org/wiki/Join_and_meet
// [join-semilattice]: https://en.wikipedia.org/wiki/Semilattice
// [⊥ and ⊤ elements]: https://en.wikipedia.org/wiki/Greatest_element_and_least_element#Top_and_bottom
type Join[S comparable] func(S, S) S

// Dot returns a directed graph in [Graphviz] format that represents the finite join-semilattice ⟨S, ≤⟩.
// Vertices represent elements in S and edges represent the ≤ relation between elements.
// We map from ⟨S, ∨⟩ to ⟨S, ≤⟩ by computing x ∨ y for all elements in [S]², where x ≤ y iff x ∨ y == y.
//
// The resulting graph can be filtered through [tred] to compute the transitive reduction of the graph, the
// visualisation of which corresponds to the Hasse diagram of the semilattice.
//
// The set of states may include the ⊥ and ⊤ elements.
//
// [Graphviz]: https://graphviz.org/
// [tred]: https://graphviz.org/docs/cli/tred/
func Dot[S comparable](fn Join[S], states []S, bottom, top S) string {
	var sb strings.Builder
	sb.WriteString("digraph{\n")
	sb.WriteString("rankdir=\"BT\"\n")

	for i, v := range states {
		if vs, ok := any(v).(fmt.Stringer); ok {
			fmt.Fprintf(&sb, "n%d [label=%q]\n", i, vs)
		} else {
			fmt.Fprintf(&sb, "n%d [label=%q]\n", i, fmt.Sprintf("%v", v))
		}
	}

	for dx, x := range states {
		for dy, y := range states {
			if dx == dy {
				continue
			}

			if join(fn, x, y, bottom, top) == y {
				fmt.Fprintf(&sb, "n%d -> n%d\n", dx, dy)
			}
		}
	}

	sb.WriteString("}")
	return sb.String()
}

func join[S comparable](fn Join[S], a, b, bottom, top S) S {
	switch {
	case a == top || b == top:
		return top
	case a == bottom:
		return b
	case b == bottom:
		return a
	case a == b:
		return a
	default:
		return fn(a, b)
	}
}
