package cfg

import (
	"bytes"
	"fmt"
	"io"
)

// Dot writes g to w as a directed graph in Graphviz format. Nodes are
// labeled with their statements, edges with their kinds.
func (g *CFG) Dot(w io.Writer) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph {\n\tlabel = %q;\n", g.Function.Name)
	for i, n := range g.nodes {
		fmt.Fprintf(&buf, "\tn%d [label=%q];\n", i, nodeName(n))
	}
	for i, edges := range g.out {
		for _, e := range edges {
			label := e.Kind.String()
			if e.Kind == SwitchCase {
				label = fmt.Sprintf("%s(%d)", e.Kind, e.CaseValue)
			}
			fmt.Fprintf(&buf, "\tn%d -> n%d [label=%q];\n", i, g.ids[e.Target], label)
		}
	}
	buf.WriteString("}\n")
	_, err := w.Write(buf.Bytes())
	return err
}
