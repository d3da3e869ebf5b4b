// tirdead reports dead statements in procedures written in the textual
// form of the IR.
//
// Usage:
//
//	tirdead [flags] file.tir...
//
// A file name of "-" reads from standard input. Settings are read from
// dataflow.conf files in the current directory and its parents; flags
// that are set explicitly take precedence. The exit status is 1 if any
// dead statements were found.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"

	"honnef.co/go/dataflow/config"
	"honnef.co/go/dataflow/version"
)

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), "Usage: tirdead [flags] file.tir...\n\nFlags:\n")
		fs.PrintDefaults()
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("tirdead: ")

	fs := flag.NewFlagSet("tirdead", flag.ExitOnError)
	fs.Usage = usage(fs)
	format := fs.String("format", "text", "output format: text, json or yaml")
	color := fs.String("color", "auto", "colorize text output: auto, always or never")
	debug := fs.Bool("debug", false, "log every transfer of the solver")
	maxTransfers := fs.Int("max-transfers", 0, "skip procedures needing more than this many transfers (0 = no limit)")
	unreachable := fs.Bool("unreachable", true, "report unreachable statements")
	deadStores := fs.Bool("deadstores", true, "report dead stores")
	jobs := fs.Int("j", runtime.GOMAXPROCS(0), "number of procedures to analyze in parallel")
	printVersion := fs.Bool("version", false, "print version and exit")
	verboseVersion := fs.Bool("debug.version", false, "print detailed version information about this program")
	fs.Parse(os.Args[1:])

	if *printVersion || *verboseVersion {
		version.Print(os.Stdout, *verboseVersion)
		os.Exit(0)
	}

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	conf, err := config.Load(wd)
	if err != nil {
		log.Fatal(err)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			conf.Output.Format = *format
		case "color":
			conf.Output.Color = *color
		case "debug":
			conf.General.Debug = *debug
		case "max-transfers":
			conf.Constprop.MaxTransfers = *maxTransfers
		case "unreachable":
			conf.Deadcode.ReportUnreachable = *unreachable
		case "deadstores":
			conf.Deadcode.ReportDeadStores = *deadStores
		}
	})
	if err := conf.Validate(); err != nil {
		log.Fatal(err)
	}

	var procs []procedure
	for _, name := range fs.Args() {
		ps, err := readFile(name)
		if err != nil {
			log.Fatal(err)
		}
		procs = append(procs, ps...)
	}

	res, err := analyze(procs, conf, *jobs)
	if err != nil {
		log.Fatal(err)
	}
	for _, p := range res.Skipped {
		log.Printf("skipped %s: %s", p.Name, strings.TrimSpace(p.Reason))
	}

	f, err := newFormatter(conf.Output, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
	if err := f.Format(res.Diagnostics); err != nil {
		log.Fatal(err)
	}
	if s, ok := f.(statter); ok {
		s.Stats(len(res.Diagnostics), len(procs))
	}
	if len(res.Diagnostics) > 0 {
		os.Exit(1)
	}
}
