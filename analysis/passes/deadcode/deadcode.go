// Package deadcode defines an Analyzer that reports code that can
// never execute because a branch condition is constant, and
// assignments whose value is never read.
package deadcode

import (
	"errors"
	"flag"
	"go/ast"
	"go/token"
	"log"
	"path/filepath"

	dc "honnef.co/go/dataflow/analysis/deadcode"
	"honnef.co/go/dataflow/analysis/dfa"
	"honnef.co/go/dataflow/config"
	"honnef.co/go/dataflow/go/lower"
	"honnef.co/go/dataflow/internal/passes/buildir"
	"honnef.co/go/dataflow/ir"

	"golang.org/x/tools/go/analysis"
)

const Doc = `report unreachable code and dead stores

Constant propagation decides which branches can be taken; statements
only reachable through branches that can't be taken are reported.
Assignments to local variables whose value is never read are reported
as well, unless they assign a zero value.

Conditions that are constant in the source, such as references to
build-time feature switches, are never considered constant. Calls to
functions that never return, such as functions that always panic, end
control flow.

Settings are read from dataflow.conf files in the package directory
and its parents. Flags that are set explicitly take precedence.`

var Analyzer = &analysis.Analyzer{
	Name:     "deadcode",
	Doc:      Doc,
	Requires: []*analysis.Analyzer{buildir.Analyzer},
}

var (
	flagConfig       bool
	flagUnreachable  bool
	flagDeadStores   bool
	flagMaxTransfers int
)

func init() {
	// run reads the flags of Analyzer
	Analyzer.Run = run
	Analyzer.Flags.BoolVar(&flagConfig, "config", true, "read dataflow.conf files")
	Analyzer.Flags.BoolVar(&flagUnreachable, "unreachable", true, "report unreachable code")
	Analyzer.Flags.BoolVar(&flagDeadStores, "deadstores", true, "report dead stores")
	Analyzer.Flags.IntVar(&flagMaxTransfers, "max-transfers", 0, "skip functions needing more than this many transfers (0 = no limit)")
}

// settings returns the configuration for the package being analyzed,
// overridden by flags that were set explicitly.
func settings(pass *analysis.Pass) (config.Config, error) {
	conf := config.Default()
	if flagConfig && len(pass.Files) > 0 {
		dir := filepath.Dir(pass.Fset.Position(pass.Files[0].Pos()).Filename)
		var err error
		if conf, err = config.Load(dir); err != nil {
			return config.Config{}, err
		}
	}
	Analyzer.Flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "unreachable":
			conf.Deadcode.ReportUnreachable = flagUnreachable
		case "deadstores":
			conf.Deadcode.ReportDeadStores = flagDeadStores
		case "max-transfers":
			conf.Constprop.MaxTransfers = flagMaxTransfers
		}
	})
	return conf, nil
}

func run(pass *analysis.Pass) (any, error) {
	conf, err := settings(pass)
	if err != nil {
		return nil, err
	}
	opts := conf.Options()

	generated := map[*token.File]bool{}
	for _, f := range pass.Files {
		if ast.IsGenerated(f) {
			generated[pass.Fset.File(f.Pos())] = true
		}
	}

	for _, fn := range pass.ResultOf[buildir.Analyzer].(*buildir.IR).SrcFuncs {
		if generated[pass.Fset.File(fn.Node.Pos())] {
			continue
		}
		// function literals in ignored functions are ignored, too
		if fn.Decl != nil && conf.Deadcode.Ignored(fn.Decl.Name.Name) {
			continue
		}
		findings, err := dc.Analyze(fn.IR, opts)
		if errors.Is(err, dfa.ErrTooManyTransfers) {
			if conf.General.Debug {
				log.Printf("%s: skipping %s: %s", fn.IR.Pos, fn.IR.Name, err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		report(pass, fn.Func, fn.Body, findings)
	}
	return nil, nil
}

func report(pass *analysis.Pass, fn *lower.Func, body *ast.BlockStmt, findings []dc.Finding) {
	unreachable := map[ir.Stmt]bool{}
	for _, f := range findings {
		switch f.Reason {
		case dc.Unreachable:
			unreachable[f.Stmt] = true
		case dc.DeadStore:
			if id, ok := fn.Stores[f.Stmt]; ok {
				pass.Reportf(id.Pos(), "this value of %s is never used", id.Name)
			}
		}
	}
	if len(unreachable) == 0 {
		return
	}

	lowered, reachable := newPosSet(), newPosSet()
	for s, o := range fn.Origins {
		lowered.add(o.Pos())
		if !unreachable[s] {
			reachable.add(o.Pos())
		}
	}
	// A Go statement is dead if it was lowered to at least one
	// statement and all of them are unreachable.
	dead := func(s ast.Stmt) bool {
		return lowered.within(s) && !reachable.within(s)
	}

	// Only the first statement of a run of dead statements is
	// reported.
	var visit func(list []ast.Stmt)
	visit = func(list []ast.Stmt) {
		inRun := false
		for _, s := range list {
			if dead(s) {
				if !inRun {
					pass.Reportf(s.Pos(), "unreachable code")
				}
				inRun = true
				continue
			}
			inRun = false
			for _, l := range children(s) {
				visit(l)
			}
		}
	}
	visit(body.List)
}

// children returns the statement lists nested directly in s.
func children(s ast.Stmt) [][]ast.Stmt {
	switch s := s.(type) {
	case *ast.BlockStmt:
		return [][]ast.Stmt{s.List}
	case *ast.LabeledStmt:
		return children(s.Stmt)
	case *ast.IfStmt:
		out := [][]ast.Stmt{s.Body.List}
		switch els := s.Else.(type) {
		case *ast.BlockStmt:
			out = append(out, els.List)
		case *ast.IfStmt:
			out = append(out, []ast.Stmt{els})
		}
		return out
	case *ast.ForStmt:
		return [][]ast.Stmt{s.Body.List}
	case *ast.RangeStmt:
		return [][]ast.Stmt{s.Body.List}
	case *ast.SwitchStmt:
		return [][]ast.Stmt{s.Body.List}
	case *ast.TypeSwitchStmt:
		return [][]ast.Stmt{s.Body.List}
	case *ast.SelectStmt:
		return [][]ast.Stmt{s.Body.List}
	case *ast.CaseClause:
		return [][]ast.Stmt{s.Body}
	case *ast.CommClause:
		return [][]ast.Stmt{s.Body}
	default:
		return nil
	}
}
