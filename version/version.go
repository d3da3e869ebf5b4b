// Package version reports the version of the running binary.
package version

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
)

// Version is set at link time for releases.
var Version = "devel"

// version returns a version descriptor and reports whether the
// version is a known release.
func version(info *debug.BuildInfo) (string, bool) {
	if Version != "devel" {
		return Version, true
	}
	if info == nil || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "devel", false
	}
	return info.Main.Version, false
}

// Print writes the version of the binary to w. If verbose is set, it
// also writes the Go version and the module dependencies.
func Print(w io.Writer, verbose bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		info = nil
	}
	fprint(w, filepath.Base(os.Args[0]), info, verbose)
}

func fprint(w io.Writer, name string, info *debug.BuildInfo, verbose bool) {
	v, release := version(info)
	switch {
	case release:
		fmt.Fprintf(w, "%s %s\n", name, v)
	case v == "devel":
		fmt.Fprintf(w, "%s (no version)\n", name)
	default:
		fmt.Fprintf(w, "%s (devel, %s)\n", name, v)
	}
	if !verbose {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compiled with Go version:", runtime.Version())
	if info == nil {
		fmt.Fprintln(w, "Built without Go modules")
		return
	}
	fmt.Fprintln(w, "Main module:")
	printModule(w, &info.Main)
	fmt.Fprintln(w, "Dependencies:")
	for _, dep := range info.Deps {
		printModule(w, dep)
	}
}

func printModule(w io.Writer, m *debug.Module) {
	fmt.Fprintf(w, "\t%s", m.Path)
	if m.Version != "(devel)" {
		fmt.Fprintf(w, "@%s", m.Version)
	}
	if m.Sum != "" {
		fmt.Fprintf(w, " (sum: %s)", m.Sum)
	}
	if m.Replace != nil {
		fmt.Fprintf(w, " (replace: %s)", m.Replace.Path)
	}
	fmt.Fprintln(w)
}
