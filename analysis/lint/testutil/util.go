// Package testutil runs analyzers on the test packages in a package's
// testdata directory.
package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/analysistest"
)

// Run runs a on every package in testdata/src/example.com and checks
// the diagnostics and facts against the // want comments in their
// sources. It returns the results of the analyzer by package path.
func Run(t *testing.T, a *analysis.Analyzer) map[string]*analysistest.Result {
	dirs, err := filepath.Glob("testdata/src/example.com/*")
	if err != nil {
		t.Fatalf("couldn't enumerate test data: %s", err)
	}
	if len(dirs) == 0 {
		t.Fatalf("found no tests")
	}

	results := map[string]*analysistest.Result{}
	for _, dir := range dirs {
		// Work around Windows paths
		pkg := strings.TrimPrefix(filepath.ToSlash(dir), "testdata/src/")
		t.Run(pkg, func(t *testing.T) {
			for _, res := range analysistest.Run(t, analysistest.TestData(), a, pkg) {
				results[pkg] = res
			}
		})
	}
	return results
}
