// Package config loads dataflow.conf files.
//
// Configuration files are looked up in a directory and all of its
// parents. Files closer to the directory take precedence; lists may
// refer to the value of the parent configuration with the special
// element "inherit". Environment variables override files.
package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"honnef.co/go/dataflow/analysis/constprop"
	"honnef.co/go/dataflow/analysis/deadcode"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"
)

type config struct {
	cfg  Config
	meta toml.MetaData
}

func mergeLists(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	for _, el := range b {
		if el == "inherit" {
			out = append(out, a...)
		} else {
			out = append(out, el)
		}
	}
	return out
}

func normalizeList(list []string) []string {
	if len(list) > 1 {
		sort.Strings(list)
		nlist := make([]string, 0, len(list))
		nlist = append(nlist, list[0])
		for i, el := range list[1:] {
			if el != list[i] {
				nlist = append(nlist, el)
			}
		}
		list = nlist
	}

	for _, el := range list {
		if el == "inherit" {
			// This should never happen, because the default config
			// should not use "inherit"
			panic(`unresolved "inherit"`)
		}
	}

	return list
}

func (cfg config) Merge(ocfg config) config {
	if ocfg.meta.IsDefined("general", "debug") {
		cfg.cfg.General.Debug = ocfg.cfg.General.Debug
	}
	if ocfg.meta.IsDefined("constprop", "max_transfers") {
		cfg.cfg.Constprop.MaxTransfers = ocfg.cfg.Constprop.MaxTransfers
	}
	if ocfg.meta.IsDefined("deadcode", "report_unreachable") {
		cfg.cfg.Deadcode.ReportUnreachable = ocfg.cfg.Deadcode.ReportUnreachable
	}
	if ocfg.meta.IsDefined("deadcode", "report_dead_stores") {
		cfg.cfg.Deadcode.ReportDeadStores = ocfg.cfg.Deadcode.ReportDeadStores
	}
	if ocfg.meta.IsDefined("deadcode", "ignore") {
		cfg.cfg.Deadcode.Ignore = mergeLists(cfg.cfg.Deadcode.Ignore, ocfg.cfg.Deadcode.Ignore)
	}
	if ocfg.meta.IsDefined("output", "format") {
		cfg.cfg.Output.Format = ocfg.cfg.Output.Format
	}
	if ocfg.meta.IsDefined("output", "color") {
		cfg.cfg.Output.Color = ocfg.cfg.Output.Color
	}
	return cfg
}

type Config struct {
	General   GeneralConfig   `toml:"general"`
	Constprop ConstpropConfig `toml:"constprop"`
	Deadcode  DeadcodeConfig  `toml:"deadcode"`
	Output    OutputConfig    `toml:"output"`
}

type GeneralConfig struct {
	// Debug logs every transfer of the solver.
	Debug bool `toml:"debug"`
}

type ConstpropConfig struct {
	// MaxTransfers limits the work spent on a single function. Zero
	// means no limit.
	MaxTransfers int `toml:"max_transfers"`
}

type DeadcodeConfig struct {
	ReportUnreachable bool `toml:"report_unreachable"`
	ReportDeadStores  bool `toml:"report_dead_stores"`
	// Ignore lists glob patterns, in the syntax of path.Match, of
	// functions that shouldn't be analyzed.
	Ignore []string `toml:"ignore"`
}

type OutputConfig struct {
	// Format is one of "text", "json" and "yaml".
	Format string `toml:"format"`
	// Color is one of "auto", "always" and "never".
	Color string `toml:"color"`
}

var defaultConfig = Config{
	General:   GeneralConfig{},
	Constprop: ConstpropConfig{},
	Deadcode: DeadcodeConfig{
		ReportUnreachable: true,
		ReportDeadStores:  true,
		Ignore:            []string{},
	},
	Output: OutputConfig{
		Format: "text",
		Color:  "auto",
	},
}

// Default returns the configuration used when no files exist.
func Default() Config {
	cfg := defaultConfig
	cfg.Deadcode.Ignore = append([]string(nil), defaultConfig.Deadcode.Ignore...)
	return cfg
}

const configName = "dataflow.conf"

// Environment variables that override configuration files.
const (
	EnvDebug  = "DATAFLOW_DEBUG"
	EnvFormat = "DATAFLOW_FORMAT"
)

func parseConfigs(dir string) ([]config, error) {
	var out []config

	for dir != "" {
		f, err := os.Open(filepath.Join(dir, configName))
		if os.IsNotExist(err) {
			ndir := filepath.Dir(dir)
			if ndir == dir {
				break
			}
			dir = ndir
			continue
		}
		if err != nil {
			return nil, err
		}
		var cfg Config
		meta, err := toml.DecodeReader(f, &cfg)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Join(dir, configName), err)
		}
		out = append(out, config{cfg, meta})
		ndir := filepath.Dir(dir)
		if ndir == dir {
			break
		}
		dir = ndir
	}
	out = append(out, config{
		cfg:  Default(),
		meta: toml.MetaData{}, // meta of the base config should never be accessed
	})
	if len(out) < 2 {
		return out, nil
	}
	for i := 0; i < len(out)/2; i++ {
		out[i], out[len(out)-1-i] = out[len(out)-1-i], out[i]
	}
	return out, nil
}

func mergeConfigs(confs []config) Config {
	if len(confs) == 0 {
		// This shouldn't happen because we always have at least a
		// default config.
		panic("trying to merge zero configs")
	}
	if len(confs) == 1 {
		return confs[0].cfg
	}
	conf := confs[0]
	for _, oconf := range confs[1:] {
		conf = conf.Merge(oconf)
	}
	return conf.cfg
}

// Load returns the configuration that applies to dir.
func Load(dir string) (Config, error) {
	confs, err := parseConfigs(dir)
	if err != nil {
		return Config{}, err
	}
	conf := mergeConfigs(confs)
	conf.Deadcode.Ignore = normalizeList(conf.Deadcode.Ignore)
	applyEnv(&conf)
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

func applyEnv(conf *Config) {
	// env caches the environment on first use
	env.Load()
	if env.Has(EnvDebug) {
		conf.General.Debug = env.Bool(EnvDebug)
	}
	if env.Has(EnvFormat) {
		conf.Output.Format = env.Str(EnvFormat)
	}
}

// Validate checks that all enumerated settings have known values.
func (conf Config) Validate() error {
	switch conf.Output.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid output format %q", conf.Output.Format)
	}
	switch conf.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color mode %q", conf.Output.Color)
	}
	if conf.Constprop.MaxTransfers < 0 {
		return fmt.Errorf("invalid max_transfers %d", conf.Constprop.MaxTransfers)
	}
	return nil
}

// Ignored reports whether the function named name matches one of the
// ignore patterns.
func (conf DeadcodeConfig) Ignored(name string) bool {
	for _, pat := range conf.Ignore {
		if ok, _ := path.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// Options returns the dead code detection options described by conf.
func (conf Config) Options() deadcode.Options {
	return deadcode.Options{
		Constprop: constprop.Config{
			MaxTransfers: conf.Constprop.MaxTransfers,
			Debug:        conf.General.Debug,
		},
		ReportUnreachable: conf.Deadcode.ReportUnreachable,
		ReportDeadStores:  conf.Deadcode.ReportDeadStores,
	}
}
