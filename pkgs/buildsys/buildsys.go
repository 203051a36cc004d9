// Package buildsys drives the configure/build/test/install/verify pipeline
// of a single from-source package build.
//
// A generic Driver owns the collaborators every stage needs (command runner,
// environment source, logger) and runs a package-specific Plugin through the
// fixed stage order. Base supplies the default, package-agnostic stage
// implementations; plugins embed it and override only what their package
// needs.
package buildsys

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/qiniu/x/log"

	"github.com/hpcforge/atlasbuild/internal/env"
	"github.com/hpcforge/atlasbuild/internal/shell"
)

// Plugin supplies the package-specific behavior of each pipeline stage.
type Plugin interface {
	Configure(cfg *Config) error
	SetParallelism(cfg *Config, requested int)
	Build(cfg *Config) error
	Test(cfg *Config) error
	Install(cfg *Config) error
	Verify(cfg *Config) error
}

// Driver owns the collaborators shared by every stage.
type Driver struct {
	Shell shell.Runner
	Env   env.Source
	Log   *log.Logger
}

// New returns a Driver. A nil logger falls back to the process-wide default.
func New(sh shell.Runner, src env.Source, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.Std
	}
	return &Driver{Shell: sh, Env: src, Log: logger}
}

// Run executes the pipeline stages in their fixed order. The first stage
// error aborts the run; the build of a package is all-or-nothing.
func (d *Driver) Run(cfg *Config, p Plugin, requestedJobs int) error {
	if err := p.Configure(cfg); err != nil {
		return err
	}
	p.SetParallelism(cfg, requestedJobs)
	if err := p.Build(cfg); err != nil {
		return err
	}
	if err := p.Test(cfg); err != nil {
		return err
	}
	if err := p.Install(cfg); err != nil {
		return err
	}
	return p.Verify(cfg)
}

// SanityCheck verifies that every path in the manifest exists under the
// install prefix, with files as files and dirs as directories. All missing
// paths are reported at once.
func (d *Driver) SanityCheck(cfg *Config, m *Manifest) error {
	if m == nil {
		m = &Manifest{}
	}
	var missing []string
	for _, f := range m.Files {
		info, err := os.Stat(filepath.Join(cfg.InstallDir, f))
		if err != nil || info.IsDir() {
			missing = append(missing, f)
		}
	}
	for _, dir := range m.Dirs {
		info, err := os.Stat(filepath.Join(cfg.InstallDir, dir))
		if err != nil || !info.IsDir() {
			missing = append(missing, dir)
		}
	}
	if len(missing) > 0 {
		return &SanityCheckError{Missing: missing}
	}
	d.Log.Infof("sanity check passed: %d files, %d dirs under %s", len(m.Files), len(m.Dirs), cfg.InstallDir)
	return nil
}

// Base provides the generic stage implementations that delegate to the
// underlying build tool with no package-specific knowledge.
type Base struct {
	*Driver
}

// Configure runs the package's configure script with the accumulated flags.
// Packages that configure in the source tree leave cfg.BuildDir empty.
func (b Base) Configure(cfg *Config) error {
	if cfg.BuildDir == "" {
		cfg.BuildDir = cfg.SourceDir
	}
	cmd := ConfigureCommand(cfg)
	out, exit, err := b.Shell.Run(cfg.BuildDir, cmd)
	if err != nil {
		return &SetupError{Op: "run configure", Err: err}
	}
	b.Log.Debugf("%s\n%s", cmd, out)
	if exit != 0 {
		return &ConfigureError{Output: out}
	}
	return nil
}

// SetParallelism records the requested degree of build parallelism.
func (b Base) SetParallelism(cfg *Config, requested int) {
	if requested < 1 {
		requested = 1
	}
	cfg.Parallelism = requested
}

// Build runs make with the configured parallelism.
func (b Base) Build(cfg *Config) error {
	cmd := fmt.Sprintf("make -j %d", cfg.Parallelism)
	out, exit, err := b.Shell.Run(cfg.BuildDir, cmd)
	if err != nil {
		return &SetupError{Op: "run build", Err: err}
	}
	b.Log.Debugf("%s\n%s", cmd, out)
	if exit != 0 {
		return fmt.Errorf("build failed (exit %d):\n%s", exit, out)
	}
	return nil
}

// Test runs the externally requested test target, if any.
func (b Base) Test(cfg *Config) error {
	if cfg.RunTest == "" {
		b.Log.Infof("no test target requested, skipping tests")
		return nil
	}
	return b.TestTarget(cfg, cfg.RunTest)
}

// TestTarget runs one make target in the build directory.
func (b Base) TestTarget(cfg *Config, target string) error {
	cmd := "make " + target
	out, exit, err := b.Shell.Run(cfg.BuildDir, cmd)
	if err != nil {
		return &SetupError{Op: "run test target " + target, Err: err}
	}
	b.Log.Debugf("%s\n%s", cmd, out)
	if exit != 0 {
		return fmt.Errorf("test target %s failed (exit %d):\n%s", target, exit, out)
	}
	return nil
}

// Install runs make install.
func (b Base) Install(cfg *Config) error {
	cmd := "make install"
	out, exit, err := b.Shell.Run(cfg.BuildDir, cmd)
	if err != nil {
		return &SetupError{Op: "run install", Err: err}
	}
	b.Log.Debugf("%s\n%s", cmd, out)
	if exit != 0 {
		return fmt.Errorf("install failed (exit %d):\n%s", exit, out)
	}
	return nil
}

// Verify checks the declared manifest against the installed tree.
func (b Base) Verify(cfg *Config) error {
	return b.SanityCheck(cfg, cfg.SanityCheckPaths)
}
