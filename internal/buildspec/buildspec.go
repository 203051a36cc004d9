// Package buildspec reads the YAML spec file naming the package version and
// option overrides for one build.
package buildspec

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/hpcforge/atlasbuild/pkgs/buildsys"
)

// MinVersion is the oldest ATLAS release this recipe knows how to drive.
const MinVersion = "v3.8.0"

// File is one parsed build spec.
type File struct {
	Package string          `yaml:"package"`
	Version string          `yaml:"version"`
	Prefix  string          `yaml:"prefix,omitempty"`
	Jobs    int             `yaml:"jobs,omitempty"`
	RunTest string          `yaml:"runtest,omitempty"`
	Options map[string]bool `yaml:"options,omitempty"`
}

// Parse reads and validates a build spec file. recognized lists the option
// names the target package accepts; any other name under options is an
// error, as is any unknown top-level key.
func Parse(path string, recognized []buildsys.OptionSpec) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := f.validate(recognized); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

func (f *File) validate(recognized []buildsys.OptionSpec) error {
	if f.Package == "" {
		return errors.New("package is required")
	}
	if f.Version != "" {
		if _, err := CanonicalVersion(f.Version); err != nil {
			return err
		}
	}
	if f.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", f.Jobs)
	}
	known := make(map[string]bool, len(recognized))
	for _, spec := range recognized {
		known[spec.Name] = true
	}
	for name := range f.Options {
		if !known[name] {
			return fmt.Errorf("unknown build option %q", name)
		}
	}
	return nil
}

// CanonicalVersion validates a package version and returns its canonical
// semver form. ATLAS releases are numbered "3.10.3" without the "v" prefix
// semver wants, so the prefix is added when missing. Versions older than
// MinVersion are rejected.
func CanonicalVersion(v string) (string, error) {
	if v == "" {
		return "", errors.New("version is required")
	}
	vv := v
	if !strings.HasPrefix(vv, "v") {
		vv = "v" + vv
	}
	if !semver.IsValid(vv) {
		return "", fmt.Errorf("invalid version %q", v)
	}
	vv = semver.Canonical(vv)
	if semver.Compare(vv, MinVersion) < 0 {
		return "", fmt.Errorf("version %q is older than the oldest supported release %s", v, strings.TrimPrefix(MinVersion, "v"))
	}
	return vv, nil
}
