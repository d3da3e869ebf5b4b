package deadcode

import (
	"go/ast"
	"go/token"

	"github.com/sirkon/rbtree"
)

// span is a closed interval of positions. Overlapping spans compare
// equal.
type span struct {
	start, end token.Pos
}

func (s *span) Cmp(o *span) int {
	if s.end < o.start {
		return -1
	}
	if s.start > o.end {
		return 1
	}
	return 0
}

// posSet is a set of positions.
type posSet struct {
	tree *rbtree.Tree[*span]
}

func newPosSet() *posSet {
	return &posSet{tree: rbtree.New[*span]()}
}

func (set *posSet) add(pos token.Pos) {
	set.tree.InsertReturn(&span{pos, pos})
}

// within reports whether the set contains a position in n.
func (set *posSet) within(n ast.Node) bool {
	want := &span{n.Pos(), n.End() - 1}
	for s := range set.tree.Iter() {
		switch s.Cmp(want) {
		case 0:
			return true
		case 1:
			// positions are visited in ascending order
			return false
		}
	}
	return false
}
