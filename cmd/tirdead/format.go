package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"honnef.co/go/dataflow/config"

	"gopkg.in/yaml.v3"
	"mpldr.codes/ansi"
)

func shortPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(cwd, path); err == nil && len(rel) < len(path) {
		return rel
	}
	return path
}

type formatter interface {
	Format(diags []Diagnostic) error
}

type statter interface {
	Stats(problems, procs int)
}

type fder interface {
	Fd() uintptr
}

func newFormatter(conf config.OutputConfig, w io.Writer) (formatter, error) {
	switch conf.Format {
	case "text":
		var color bool
		switch conf.Color {
		case "always":
			color = true
		case "auto":
			if f, ok := w.(fder); ok {
				color = isTerminal(f.Fd())
			}
		}
		return &textFormatter{W: w, Color: color}, nil
	case "json":
		return jsonFormatter{W: w}, nil
	case "yaml":
		return yamlFormatter{W: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", conf.Format)
	}
}

type textFormatter struct {
	W     io.Writer
	Color bool
}

func (o *textFormatter) Format(diags []Diagnostic) error {
	for _, d := range diags {
		pos := shortPath(d.File)
		if d.Line > 0 {
			pos = fmt.Sprintf("%s:%d", pos, d.Line)
		}
		reason := d.Reason
		if o.Color {
			if d.Reason == "unreachable" {
				reason = ansi.Red(ansi.Bold(d.Reason))
			} else {
				reason = ansi.Yellow(d.Reason)
			}
		}
		if _, err := fmt.Fprintf(o.W, "%s: %s: %d: %s (%s)\n", pos, d.Proc, d.Index, d.Stmt, reason); err != nil {
			return err
		}
	}
	return nil
}

func (o *textFormatter) Stats(problems, procs int) {
	icon := "✔"
	if problems != 0 {
		icon = "!"
	}
	if o.Color {
		if problems != 0 {
			icon = ansi.Yellow(ansi.Bold(icon))
		} else {
			icon = ansi.Green(icon)
		}
	}
	fmt.Fprintf(o.W, " %s %d dead statements in %d procedures\n", icon, problems, procs)
}

// jsonFormatter writes one JSON object per line.
type jsonFormatter struct {
	W io.Writer
}

func (o jsonFormatter) Format(diags []Diagnostic) error {
	enc := json.NewEncoder(o.W)
	for _, d := range diags {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return nil
}

// yamlFormatter writes a single document holding a list.
type yamlFormatter struct {
	W io.Writer
}

func (o yamlFormatter) Format(diags []Diagnostic) error {
	if diags == nil {
		diags = []Diagnostic{}
	}
	enc := yaml.NewEncoder(o.W)
	enc.SetIndent(2)
	if err := enc.Encode(diags); err != nil {
		return err
	}
	return enc.Close()
}
