package buildsys

import (
	"fmt"
	"strings"
)

// MissingDepError reports a required build dependency the environment does
// not provide. It is raised before any tool is invoked.
type MissingDepError struct {
	Dependency string // human-readable name, e.g. "netlib LAPACK library"
	EnvVar     string // variable expected to point at it
}

func (e *MissingDepError) Error() string {
	return fmt.Sprintf("%s not available (%s is not set), required for this build", e.Dependency, e.EnvVar)
}

// SetupError reports a filesystem or working-directory failure while
// preparing or running a stage.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *SetupError) Unwrap() error { return e.Err }

// ThrottlingError reports that configure aborted because the package
// detected CPU frequency throttling. Unlike ConfigureError it carries a
// remediation hint instead of raw tool output, so the operator sees an
// actionable message for this known failure mode.
type ThrottlingError struct {
	Hint string
}

func (e *ThrottlingError) Error() string {
	return "configure failed because CPU throttling is enabled; " + e.Hint
}

// ConfigureError reports a configure failure with no recognized cause.
// Output holds the raw tool output for operator inspection.
type ConfigureError struct {
	Output string
}

func (e *ConfigureError) Error() string {
	return fmt.Sprintf("configure failed, not sure why; tool output follows\n%s", e.Output)
}

// SanityCheckError reports install artifacts missing after a build. Every
// missing path is named.
type SanityCheckError struct {
	Missing []string
}

func (e *SanityCheckError) Error() string {
	return "sanity check failed, missing: " + strings.Join(e.Missing, ", ")
}
