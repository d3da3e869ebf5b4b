package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"honnef.co/go/dataflow/analysis/deadcode"
	"honnef.co/go/dataflow/analysis/dfa"
	"honnef.co/go/dataflow/config"
	"honnef.co/go/dataflow/ir"

	"golang.org/x/sync/errgroup"
)

type procedure struct {
	File string
	Fn   *ir.Function
}

// Diagnostic is a dead statement.
type Diagnostic struct {
	File   string `json:"file" yaml:"file"`
	Line   int    `json:"line" yaml:"line"`
	Proc   string `json:"proc" yaml:"proc"`
	Index  int    `json:"index" yaml:"index"`
	Stmt   string `json:"stmt" yaml:"stmt"`
	Reason string `json:"reason" yaml:"reason"`
}

type skipped struct {
	Name   string
	Reason string
}

type result struct {
	Diagnostics []Diagnostic
	Skipped     []skipped
}

func readFile(name string) ([]procedure, error) {
	var r io.Reader
	if name == "-" {
		r = os.Stdin
		name = "<stdin>"
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	fns, err := ir.Parse(name, r)
	if err != nil {
		return nil, err
	}
	out := make([]procedure, len(fns))
	for i, fn := range fns {
		out[i] = procedure{name, fn}
	}
	return out, nil
}

// analyze analyzes procs, at most jobs at a time. Diagnostics are in
// the order of procs and, within a procedure, in statement order.
func analyze(procs []procedure, conf config.Config, jobs int) (result, error) {
	opts := conf.Options()
	found := make([][]deadcode.Finding, len(procs))
	skip := make([]error, len(procs))

	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, p := range procs {
		if conf.Deadcode.Ignored(p.Fn.Name) {
			continue
		}
		g.Go(func() error {
			findings, err := deadcode.Analyze(p.Fn, opts)
			if errors.Is(err, dfa.ErrTooManyTransfers) {
				skip[i] = err
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", p.File, err)
			}
			found[i] = findings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result{}, err
	}

	var res result
	for i, p := range procs {
		if skip[i] != nil {
			res.Skipped = append(res.Skipped, skipped{p.Fn.Name, skip[i].Error()})
		}
		for _, f := range found[i] {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				File:   p.File,
				Line:   f.Stmt.Line(),
				Proc:   p.Fn.Name,
				Index:  f.Stmt.Index(),
				Stmt:   f.Stmt.String(),
				Reason: f.Reason.String(),
			})
		}
	}
	return res, nil
}
