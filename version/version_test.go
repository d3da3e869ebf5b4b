package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestPrint(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "honnef.co/go/dataflow", Version: "v0.2.0"},
		Deps: []*debug.Module{
			{Path: "github.com/BurntSushi/toml", Version: "v0.4.1", Sum: "h1:abc"},
			{Path: "example.com/local", Version: "(devel)", Replace: &debug.Module{Path: "../local"}},
		},
	}
	tests := []struct {
		name    string
		info    *debug.BuildInfo
		verbose bool
		want    string
	}{
		{"no info", nil, false, "tirdead (no version)\n"},
		{"devel", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, false, "tirdead (no version)\n"},
		{"module", info, false, "tirdead (devel, v0.2.0)\n"},
		{"verbose", info, true, "tirdead (devel, v0.2.0)\n\n" +
			"Compiled with Go version: " + runtime.Version() + "\n" +
			"Main module:\n" +
			"\thonnef.co/go/dataflow@v0.2.0\n" +
			"Dependencies:\n" +
			"\tgithub.com/BurntSushi/toml@v0.4.1 (sum: h1:abc)\n" +
			"\texample.com/local (replace: ../local)\n"},
		{"verbose without modules", nil, true, "tirdead (no version)\n\n" +
			"Compiled with Go version: " + runtime.Version() + "\n" +
			"Built without Go modules\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			fprint(&sb, "tirdead", tt.info, tt.verbose)
			if got := sb.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRelease(t *testing.T) {
	defer func(v string) { Version = v }(Version)
	Version = "v1.0.0"
	var sb strings.Builder
	fprint(&sb, "tirdead", nil, false)
	if got, want := sb.String(), "tirdead v1.0.0\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
