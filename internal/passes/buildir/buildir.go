// Package buildir defines an Analyzer that lowers the functions of an
// error-free package to IR and returns them. It does not report any
// diagnostics itself but may be used as an input to other analyzers.
//
// Functions that never return normally are recorded as facts, so that
// calls to them end control flow in importing packages, too.
package buildir

import (
	"fmt"
	"go/ast"
	"go/types"
	"io"
	"os"
	"reflect"
	"sync"

	"honnef.co/go/dataflow/go/lower"
	"honnef.co/go/dataflow/ir"
	"honnef.co/go/dataflow/ir/cfg"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

type noReturn struct{}

func (*noReturn) AFact()         {}
func (*noReturn) String() string { return "noReturn" }

var Analyzer = &analysis.Analyzer{
	Name:       "buildir",
	Doc:        "lower function bodies to IR for later passes",
	Run:        run,
	Requires:   []*analysis.Analyzer{inspect.Analyzer},
	ResultType: reflect.TypeOf(new(IR)),
	FactTypes:  []analysis.Fact{new(noReturn)},
}

// Debug controls the output of lowered functions, for use by irdump.
var Debug struct {
	// Print writes the IR of every function.
	Print bool
	// Dot writes the control-flow graph of every function in Graphviz
	// format.
	Dot bool
	// Output defaults to os.Stdout.
	Output io.Writer
}

var debugMu sync.Mutex

// Function is a lowered function declaration or literal.
type Function struct {
	*lower.Func
	// Node is the *ast.FuncDecl or *ast.FuncLit that was lowered.
	Node ast.Node
	Body *ast.BlockStmt
	// Decl is the declaration enclosing Node, or nil for literals at
	// package level.
	Decl *ast.FuncDecl
}

// IR provides the lowered form of all the source functions in the
// current package.
type IR struct {
	// SrcFuncs holds functions and literals in source order.
	SrcFuncs []*Function
	// NoReturn holds the functions of the package that never return
	// normally.
	NoReturn map[*types.Func]bool
}

func run(pass *analysis.Pass) (any, error) {
	type source struct {
		node ast.Node
		body *ast.BlockStmt
		decl *ast.FuncDecl
	}
	var sources []source
	var cur *ast.FuncDecl
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	insp.Nodes([]ast.Node{(*ast.FuncDecl)(nil), (*ast.FuncLit)(nil)}, func(n ast.Node, push bool) bool {
		switch n := n.(type) {
		case *ast.FuncDecl:
			if !push {
				cur = nil
				return true
			}
			cur = n
			if n.Body != nil {
				sources = append(sources, source{n, n.Body, n})
			}
		case *ast.FuncLit:
			if push {
				sources = append(sources, source{n, n.Body, cur})
			}
		}
		return true
	})

	local := map[*types.Func]bool{}
	conf := &lower.Config{
		NoReturn: func(fn *types.Func) bool {
			fn = fn.Origin()
			if knownExit(fn) {
				return true
			}
			if fn.Pkg() == pass.Pkg {
				return local[fn]
			}
			return pass.ImportObjectFact(fn, new(noReturn))
		},
	}

	// Lower until the set of functions that don't return stops
	// growing. The set only grows, because lowering a call to a
	// function that doesn't return can only remove paths to the exit.
	var funcs []*Function
	for {
		funcs = funcs[:0]
		changed := false
		for _, src := range sources {
			fn, err := conf.Lower(pass.Fset, pass.TypesInfo, src.node)
			if err != nil {
				return nil, err
			}
			funcs = append(funcs, &Function{Func: fn, Node: src.node, Body: src.body, Decl: src.decl})

			decl, ok := src.node.(*ast.FuncDecl)
			if !ok {
				continue
			}
			obj, ok := pass.TypesInfo.Defs[decl.Name].(*types.Func)
			if !ok || local[obj] {
				continue
			}
			nr, err := fn.NoReturn()
			if err != nil {
				return nil, err
			}
			if nr {
				local[obj] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for obj := range local {
		pass.ExportObjectFact(obj, new(noReturn))
	}

	if Debug.Print || Debug.Dot {
		if err := dump(funcs); err != nil {
			return nil, err
		}
	}
	return &IR{SrcFuncs: funcs, NoReturn: local}, nil
}

func dump(funcs []*Function) error {
	debugMu.Lock()
	defer debugMu.Unlock()
	w := Debug.Output
	if w == nil {
		w = os.Stdout
	}
	for _, fn := range funcs {
		if Debug.Print {
			fmt.Fprintf(w, "// %s\n", fn.IR.Pos)
			ir.WriteFunction(w, fn.IR)
		}
		if Debug.Dot {
			g, err := cfg.New(fn.IR)
			if err != nil {
				return err
			}
			if err := g.Dot(w); err != nil {
				return err
			}
		}
	}
	return nil
}
