package buildsys

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OptionSpec describes one recognized build option: its name, default value
// and help text. Plugins publish their option set through these so both the
// Config defaults and the CLI help come from a single source.
type OptionSpec struct {
	Name    string
	Default bool
	Help    string
}

// Flag is a single configure-script argument, kept structured until the
// command line is assembled. The accumulated flag list stays ordered and
// inspectable; configure scripts parse left to right, so later flags win.
type Flag struct {
	Opt  string   // option token, e.g. "-b" or "--with-netlib-lapack=/x/lib/liblapack.a"
	Args []string // positional arguments, e.g. ["64"] or ["cputhrchk", "0"]
}

// Render returns the flag as it appears on the configure command line.
func (f Flag) Render() string {
	if len(f.Args) == 0 {
		return f.Opt
	}
	return f.Opt + " " + strings.Join(f.Args, " ")
}

// RenderFlags renders an ordered flag list to one command-line fragment.
func RenderFlags(flags []Flag) string {
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = f.Render()
	}
	return strings.Join(parts, " ")
}

// Manifest declares the files and directories an installed package must
// provide, relative to the install prefix.
type Manifest struct {
	Files []string
	Dirs  []string
}

// Config is the mutable state of one package build. The driver's caller
// creates it, every stage reads or mutates it, and it is discarded once the
// pipeline finishes or aborts.
type Config struct {
	SourceDir  string // unpacked package source; the configure script lives here
	InstallDir string // install prefix; fixed before the pipeline runs
	BuildDir   string // working directory for build commands; Configure may move it

	// Parallelism is the -j degree passed to the build tool. Plugins may
	// override whatever the caller requested.
	Parallelism int

	// PIC requests position-independent code even for static-only builds.
	PIC bool

	PreConfigOpts []string // rendered verbatim before the configure executable
	ConfigOpts    []Flag   // ordered, append-only until rendered

	// RunTest is an externally requested test target; plugins with a fixed
	// test plan ignore it with a warning.
	RunTest string

	// SanityCheckPaths is the verification manifest. When nil at verify
	// time, the plugin computes its package-specific default.
	SanityCheckPaths *Manifest

	options map[string]bool
	specs   []OptionSpec
}

// NewConfig returns a Config with every recognized option at its default
// and parallelism 1.
func NewConfig(specs []OptionSpec) *Config {
	opts := make(map[string]bool, len(specs))
	for _, s := range specs {
		opts[s.Name] = s.Default
	}
	return &Config{Parallelism: 1, options: opts, specs: specs}
}

// SetOption overrides a recognized option; unknown names are an error.
func (c *Config) SetOption(name string, value bool) error {
	if _, ok := c.options[name]; !ok {
		return fmt.Errorf("unknown build option %q", name)
	}
	c.options[name] = value
	return nil
}

// Option reports the current value of a recognized option. Unknown names
// read as false.
func (c *Config) Option(name string) bool {
	return c.options[name]
}

// Options returns a copy of the current option values.
func (c *Config) Options() map[string]bool {
	out := make(map[string]bool, len(c.options))
	for k, v := range c.options {
		out[k] = v
	}
	return out
}

// AddConfigOpt appends one configure flag, preserving order.
func (c *Config) AddConfigOpt(f Flag) {
	c.ConfigOpts = append(c.ConfigOpts, f)
}

// ConfigureCommand renders the full configure invocation for cfg: any
// pre-configure options, the configure script path, the install prefix and
// the accumulated flags, in that order.
func ConfigureCommand(cfg *Config) string {
	parts := make([]string, 0, 3+len(cfg.PreConfigOpts))
	parts = append(parts, cfg.PreConfigOpts...)
	parts = append(parts, filepath.Join(cfg.SourceDir, "configure"))
	parts = append(parts, "--prefix="+cfg.InstallDir)
	if flags := RenderFlags(cfg.ConfigOpts); flags != "" {
		parts = append(parts, flags)
	}
	return strings.Join(parts, " ")
}
