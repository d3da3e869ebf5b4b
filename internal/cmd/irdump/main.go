// irdump: a tool for displaying the IR form of Go programs.
package main

import (
	"flag"

	"honnef.co/go/dataflow/internal/passes/buildir"

	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	flag.BoolVar(&buildir.Debug.Print, "print", true, "Print the IR of every function")
	flag.BoolVar(&buildir.Debug.Dot, "dot", false, "Print Graphviz dot of CFG")
	singlechecker.Main(buildir.Analyzer)
}
