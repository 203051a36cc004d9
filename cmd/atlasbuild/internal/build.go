package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/hpcforge/atlasbuild/internal/buildspec"
	"github.com/hpcforge/atlasbuild/internal/env"
	"github.com/hpcforge/atlasbuild/internal/lockedfile"
	"github.com/hpcforge/atlasbuild/internal/shell"
	"github.com/hpcforge/atlasbuild/pkgs/buildsys"
	"github.com/hpcforge/atlasbuild/pkgs/buildsys/atlas"
)

// defaultVersion is the ATLAS release built when none is named.
const defaultVersion = "3.10.3"

var (
	buildSource   string
	buildPrefix   string
	buildSpecPath string
	buildEnvFile  string
	buildJobs     int
)

var buildCmd = &cobra.Command{
	Use:   "build [version | atlas@version]",
	Short: "Build and install ATLAS from source",
	Long: `Build runs the full pipeline for an unpacked ATLAS source tree:
configure, build, test, install and verify.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildSource, "source", "s", "", "Directory with the unpacked ATLAS source tree (required)")
	buildCmd.Flags().StringVarP(&buildPrefix, "prefix", "p", "", "Install prefix (default: per-user cache dir)")
	buildCmd.Flags().StringVar(&buildSpecPath, "spec", "", "YAML build spec file")
	buildCmd.Flags().StringVar(&buildEnvFile, "env-file", "", "Env file with toolchain variables (CC, F77, SOFTROOTLAPACK)")
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", runtime.NumCPU(), "Requested build parallelism (ATLAS pins this to 1)")
	for _, spec := range atlas.RecognizedOptions() {
		buildCmd.Flags().Bool(spec.Name, spec.Default, spec.Help)
	}
	buildCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := atlas.NewConfig()

	version := ""
	if buildSpecPath != "" {
		spec, err := buildspec.Parse(buildSpecPath, atlas.RecognizedOptions())
		if err != nil {
			return err
		}
		if spec.Package != "atlas" {
			return fmt.Errorf("spec file is for package %q, this tool builds atlas", spec.Package)
		}
		version = spec.Version
		cfg.RunTest = spec.RunTest
		for name, value := range spec.Options {
			if err := cfg.SetOption(name, value); err != nil {
				return err
			}
		}
		if spec.Prefix != "" && buildPrefix == "" {
			buildPrefix = spec.Prefix
		}
		if spec.Jobs > 0 && !cmd.Flags().Changed("jobs") {
			buildJobs = spec.Jobs
		}
	}

	if len(args) == 1 {
		pkg, v := parseBuildArg(args[0])
		if pkg != "" && pkg != "atlas" {
			return fmt.Errorf("unknown package %q, this tool builds atlas", pkg)
		}
		version = v
	}
	if version == "" {
		version = defaultVersion
	}
	canonical, err := buildspec.CanonicalVersion(version)
	if err != nil {
		return err
	}
	versionStr := strings.TrimPrefix(canonical, "v")

	// Command-line option flags override the spec file.
	for _, spec := range atlas.RecognizedOptions() {
		if cmd.Flags().Changed(spec.Name) {
			value, err := cmd.Flags().GetBool(spec.Name)
			if err != nil {
				return err
			}
			if err := cfg.SetOption(spec.Name, value); err != nil {
				return err
			}
		}
	}

	if buildEnvFile != "" {
		if err := godotenv.Load(buildEnvFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	source, err := filepath.Abs(buildSource)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(source, "configure")); err != nil {
		return fmt.Errorf("%s does not look like an ATLAS source tree (no configure script): %w", source, err)
	}

	prefix := buildPrefix
	if prefix == "" {
		workDir, err := env.WorkDir()
		if err != nil {
			return err
		}
		prefix = filepath.Join(workDir, "atlas@"+versionStr)
	}
	prefix, err = filepath.Abs(prefix)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(prefix, 0o755); err != nil {
		return err
	}

	// One build per install prefix at a time.
	unlock, err := lockedfile.MutexAt(filepath.Join(prefix, ".lock")).Lock()
	if err != nil {
		return fmt.Errorf("failed to lock install prefix: %w", err)
	}
	defer unlock()

	cfg.SourceDir = source
	cfg.InstallDir = prefix

	color.Cyan.Printf("building atlas@%s\n", versionStr)
	color.Cyan.Printf("  source  %s\n  prefix  %s\n", source, prefix)

	driver := buildsys.New(shell.Exec{}, env.OS{}, log.Std)
	if err := driver.Run(cfg, atlas.New(driver), buildJobs); err != nil {
		color.Red.Println("build failed")
		return err
	}
	if err := buildsys.WriteReceipt(cfg, "atlas", versionStr); err != nil {
		log.Warnf("failed to write build receipt: %v", err)
	}
	color.Green.Printf("atlas@%s installed to %s\n", versionStr, prefix)
	return nil
}

// parseBuildArg splits a build argument into package and version.
// Accepted forms: "3.10.3" and "atlas@3.10.3".
func parseBuildArg(arg string) (pkg, version string) {
	if i := strings.LastIndex(arg, "@"); i >= 0 {
		return arg[:i], arg[i+1:]
	}
	return "", arg
}
