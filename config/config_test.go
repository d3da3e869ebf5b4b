package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, configName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvDebug, "")
	os.Unsetenv(EnvDebug)
	t.Setenv(EnvFormat, "")
	os.Unsetenv(EnvFormat)

	conf, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(conf, Default()) {
		t.Errorf("got %+v, want defaults %+v", conf, Default())
	}
	opts := conf.Options()
	if !opts.ReportUnreachable || !opts.ReportDeadStores || opts.Constprop.MaxTransfers != 0 {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestLoadMerge(t *testing.T) {
	t.Setenv(EnvDebug, "")
	os.Unsetenv(EnvDebug)
	t.Setenv(EnvFormat, "")
	os.Unsetenv(EnvFormat)

	root := t.TempDir()
	writeConfig(t, root, `
[constprop]
max_transfers = 1000

[deadcode]
report_dead_stores = false
ignore = ["init", "Test*"]

[output]
format = "json"
`)
	sub := filepath.Join(root, "a", "b")
	writeConfig(t, sub, `
[deadcode]
ignore = ["inherit", "Benchmark*", "init"]

[output]
color = "never"
`)

	conf, err := Load(sub)
	if err != nil {
		t.Fatal(err)
	}
	if conf.Constprop.MaxTransfers != 1000 {
		t.Errorf("max_transfers = %d, want 1000", conf.Constprop.MaxTransfers)
	}
	if conf.Deadcode.ReportDeadStores || !conf.Deadcode.ReportUnreachable {
		t.Errorf("unexpected deadcode settings %+v", conf.Deadcode)
	}
	if want := []string{"Benchmark*", "Test*", "init"}; !reflect.DeepEqual(conf.Deadcode.Ignore, want) {
		t.Errorf("ignore = %q, want %q", conf.Deadcode.Ignore, want)
	}
	if conf.Output.Format != "json" || conf.Output.Color != "never" {
		t.Errorf("unexpected output settings %+v", conf.Output)
	}

	for name, want := range map[string]bool{
		"init":          true,
		"TestFoo":       true,
		"BenchmarkBar":  true,
		"main":          false,
		"ExampleTestFn": false,
	} {
		if got := conf.Deadcode.Ignored(name); got != want {
			t.Errorf("Ignored(%q) = %t, want %t", name, got, want)
		}
	}

	// A sibling directory only sees the root file.
	conf, err = Load(filepath.Join(root, "a"))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Test*", "init"}; !reflect.DeepEqual(conf.Deadcode.Ignore, want) {
		t.Errorf("ignore = %q, want %q", conf.Deadcode.Ignore, want)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[general]
debug = false

[output]
format = "json"
`)
	t.Setenv(EnvDebug, "1")
	t.Setenv(EnvFormat, "yaml")
	conf, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !conf.General.Debug || !conf.Options().Constprop.Debug {
		t.Error("DATAFLOW_DEBUG didn't enable debugging")
	}
	if conf.Output.Format != "yaml" {
		t.Errorf("format = %q, want yaml", conf.Output.Format)
	}
}

func TestLoadEnvChanges(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvFormat, "")
	conf, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if conf.Output.Format != "text" {
		t.Fatalf("format = %q, want text", conf.Output.Format)
	}

	t.Setenv(EnvFormat, "json")
	if conf, err = Load(dir); err != nil {
		t.Fatal(err)
	}
	if conf.Output.Format != "json" {
		t.Errorf("format = %q after changing %s, want json", conf.Output.Format, EnvFormat)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvFormat, "")
	os.Unsetenv(EnvFormat)

	tests := []struct {
		content string
		msg     string
	}{
		{"[output]\nformat = \"xml\"\n", `invalid output format "xml"`},
		{"[output]\ncolor = \"sometimes\"\n", `invalid color mode "sometimes"`},
		{"[constprop]\nmax_transfers = -1\n", "invalid max_transfers -1"},
		{"[general\n", configName},
	}
	for _, tt := range tests {
		dir := t.TempDir()
		writeConfig(t, dir, tt.content)
		_, err := Load(dir)
		if err == nil {
			t.Errorf("%q: expected an error", tt.content)
			continue
		}
		if !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("%q: error %q doesn't mention %q", tt.content, err, tt.msg)
		}
	}
}
