// deadcode reports unreachable code and dead stores in Go packages.
package main

import (
	"honnef.co/go/dataflow/analysis/passes/deadcode"

	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	singlechecker.Main(deadcode.Analyzer)
}
