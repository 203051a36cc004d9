// Package atlas builds the ATLAS linear algebra library from source.
//
// ATLAS is peculiar among configure/make packages:
//   - its configure step runs timing benchmarks and refuses to proceed when
//     CPU frequency throttling is enabled;
//   - parallel builds disturb the timing calibration it performs, so the
//     build is always pinned to one job;
//   - it insists on being configured and built in a separate subdirectory.
package atlas

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hpcforge/atlasbuild/pkgs/buildsys"
)

// Option names recognized by this plugin.
const (
	OptIgnoreThrottling = "ignorethrottling"
	OptFullLapack       = "full_lapack"
	OptSharedLibs       = "sharedlibs"
)

const (
	// objDir is the separate subdirectory ATLAS wants to be configured
	// and built in.
	objDir = "obj"

	// lapackEnvVar names the install root of netlib's LAPACK.
	lapackEnvVar = "SOFTROOTLAPACK"

	// sharedTargets builds the four shared library variants: plain,
	// C interface, threaded, threaded C interface.
	sharedTargets = "make shared cshared ptshared cptshared"
)

// libs are the libraries every ATLAS install provides.
var libs = []string{"atlas", "cblas", "f77blas", "lapack", "ptcblas", "ptf77blas"}

// testTargets always run, in order: correctness check, threaded-code check,
// performance timing summary.
var testTargets = []string{"check", "ptcheck", "time"}

// throttlingRe matches the output ATLAS configure emits when it detects CPU
// throttling, e.g. "CPU throttling was enabled".
var throttlingRe = regexp.MustCompile(`(?i)cpu throttling [a-zA-Z]* enabled`)

const throttlingHint = "either disable CPU throttling at the OS level, or set the " +
	OptIgnoreThrottling + " option; see http://math-atlas.sourceforge.net/errata.html#cputhrottle"

// RecognizedOptions returns the build options this plugin understands, with
// their defaults and help text.
func RecognizedOptions() []buildsys.OptionSpec {
	return []buildsys.OptionSpec{
		{Name: OptIgnoreThrottling, Default: false, Help: "ignore the CPU throttling check done by ATLAS (not recommended)"},
		{Name: OptFullLapack, Default: false, Help: "build a full LAPACK library (requires netlib's LAPACK)"},
		{Name: OptSharedLibs, Default: true, Help: "also build shared libraries"},
	}
}

// NewConfig returns a build config with the ATLAS option defaults applied.
func NewConfig() *buildsys.Config {
	return buildsys.NewConfig(RecognizedOptions())
}

// Plugin implements the ATLAS-specific pipeline stages. The install stage is
// inherited unchanged from the generic defaults.
type Plugin struct {
	buildsys.Base
}

// New returns the ATLAS plugin for the given driver.
func New(d *buildsys.Driver) *Plugin {
	return &Plugin{Base: buildsys.Base{Driver: d}}
}

// Configure accumulates the ATLAS configure flags in their required order,
// creates the separate build directory and runs configure there. A nonzero
// exit is classified: a detected CPU-throttling abort yields a
// ThrottlingError with a remediation hint, anything else a ConfigureError
// carrying the raw tool output.
func (p *Plugin) Configure(cfg *buildsys.Config) error {
	// 64-bit build.
	cfg.AddConfigOpt(buildsys.Flag{Opt: "-b", Args: []string{"64"}})

	if cfg.Option(OptIgnoreThrottling) {
		// Turns off the throttling check inside ATLAS itself. The timing
		// measurements it takes will be disturbed; escape hatch for hosts
		// where throttling cannot be switched off without root access.
		cfg.AddConfigOpt(buildsys.Flag{Opt: "-Si", Args: []string{"cputhrchk", "0"}})
	}

	if cfg.Option(OptFullLapack) {
		// ATLAS provides only a few LAPACK routines natively; a full
		// LAPACK library needs netlib's static archive.
		root, ok := p.Env.Lookup(lapackEnvVar)
		if !ok || root == "" {
			return &buildsys.MissingDepError{Dependency: "netlib LAPACK library", EnvVar: lapackEnvVar}
		}
		cfg.AddConfigOpt(buildsys.Flag{Opt: "--with-netlib-lapack=" + filepath.Join(root, "lib", "liblapack.a")})
	}

	if cfg.Option(OptSharedLibs) || cfg.PIC {
		// Shared libraries need -fPIC; static-only builds skip it because
		// PIC costs performance.
		p.Log.Debugf("enabling -fPIC for shared ATLAS libs")
		cfg.AddConfigOpt(buildsys.Flag{Opt: "-Fa", Args: []string{"alg", "-fPIC"}})
	}

	// ATLAS only wants to be configured and built in a separate directory.
	dir := filepath.Join(cfg.SourceDir, objDir)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return &buildsys.SetupError{Op: "create " + objDir + " directory to build in", Err: err}
	}
	cfg.BuildDir = dir

	cfg.AddConfigOpt(buildsys.Flag{Opt: "-C", Args: []string{"ic", p.compiler(cfg, "CC")}})
	cfg.AddConfigOpt(buildsys.Flag{Opt: "-C", Args: []string{"if", p.compiler(cfg, "F77")}})

	// The configure script lives one directory above the build dir.
	cmd := buildsys.ConfigureCommand(cfg)
	out, exit, err := p.Shell.Run(cfg.BuildDir, cmd)
	if err != nil {
		return &buildsys.SetupError{Op: "run configure", Err: err}
	}
	p.Log.Debugf("%s\n%s", cmd, out)
	if exit != 0 {
		if throttlingRe.MatchString(out) {
			return &buildsys.ThrottlingError{Hint: throttlingHint}
		}
		return &buildsys.ConfigureError{Output: out}
	}
	return nil
}

// compiler reads a compiler variable from the environment. An unset variable
// is passed through as an empty flag value; ATLAS then falls back to its own
// compiler detection, so this only warns.
func (p *Plugin) compiler(cfg *buildsys.Config, name string) string {
	v, ok := p.Env.Lookup(name)
	if !ok {
		p.Log.Warnf("%s is not set; configure receives an empty compiler name", name)
	}
	return v
}

// SetParallelism pins the build to one job no matter what was requested.
// ATLAS collects timings while building; concurrent compilation makes them
// meaningless and the build unreliable.
func (p *Plugin) SetParallelism(cfg *buildsys.Config, requested int) {
	if requested != 1 {
		p.Log.Infof("disabling parallel build (%d jobs requested), makes no sense for ATLAS", requested)
	}
	cfg.Parallelism = 1
}

// Build runs the default build, then the four shared-library variants when
// sharedlibs is set. A failing shared-library build is surfaced as a warning
// but does not invalidate the static libraries already built.
func (p *Plugin) Build(cfg *buildsys.Config) error {
	if err := p.Base.Build(cfg); err != nil {
		return err
	}
	if !cfg.Option(OptSharedLibs) {
		return nil
	}

	libDir := filepath.Join(cfg.BuildDir, "lib")
	info, err := os.Stat(libDir)
	if err != nil {
		return &buildsys.SetupError{Op: "change to lib directory for building the shared libs", Err: err}
	}
	if !info.IsDir() {
		return &buildsys.SetupError{Op: "change to lib directory for building the shared libs", Err: fmt.Errorf("%s is not a directory", libDir)}
	}

	p.Log.Debugf("building shared libraries")
	out, exit, err := p.Shell.Run(libDir, sharedTargets)
	if err != nil {
		return &buildsys.SetupError{Op: "run shared library build", Err: err}
	}
	if exit != 0 {
		p.Log.Warnf("shared library build failed (exit %d); static libraries are unaffected\n%s", exit, out)
	}
	// Later stages keep running from cfg.BuildDir, unchanged by this stage.
	return nil
}

// Test ignores any externally requested test target and runs the fixed
// ATLAS targets, best effort: every target runs even when an earlier one
// fails, and failures are aggregated.
func (p *Plugin) Test(cfg *buildsys.Config) error {
	if cfg.RunTest != "" {
		p.Log.Warnf("ATLAS testing always runs 'make check', 'make ptcheck' and 'make time'; ignoring requested target %q", cfg.RunTest)
	}
	var errs []error
	for _, target := range testTargets {
		if err := p.TestTarget(cfg, target); err != nil {
			p.Log.Errorf("test target %s failed: %v", target, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Verify checks the installed tree against the ATLAS manifest, computing the
// package default when no manifest was supplied.
func (p *Plugin) Verify(cfg *buildsys.Config) error {
	if cfg.SanityCheckPaths == nil {
		cfg.SanityCheckPaths = Manifest(cfg.Option(OptSharedLibs))
		p.Log.Infof("customized sanity check paths: %d files, %d dirs",
			len(cfg.SanityCheckPaths.Files), len(cfg.SanityCheckPaths.Dirs))
	}
	return p.SanityCheck(cfg, cfg.SanityCheckPaths)
}

// Manifest returns the files and directories every ATLAS install must
// provide: the two C headers, one static archive per library, one shared
// object per library when shared is set, and the atlas include directory.
func Manifest(shared bool) *buildsys.Manifest {
	m := &buildsys.Manifest{
		Files: []string{
			filepath.Join("include", "cblas.h"),
			filepath.Join("include", "clapack.h"),
		},
		Dirs: []string{filepath.Join("include", "atlas")},
	}
	for _, lib := range libs {
		m.Files = append(m.Files, filepath.Join("lib", "lib"+lib+".a"))
	}
	if shared {
		for _, lib := range libs {
			m.Files = append(m.Files, filepath.Join("lib", "lib"+lib+".so"))
		}
	}
	return m
}
