// Package env provides environment lookup for the build pipeline.
//
// The pipeline never reads os.Getenv directly; it goes through a Source so
// that every environment dependency (compilers, LAPACK root) is visible in
// a signature and replaceable in tests.
package env

import (
	"os"
	"path/filepath"
)

// Source looks up environment variables.
type Source interface {
	// Lookup returns the value of the named variable and whether it is set.
	Lookup(name string) (string, bool)
}

// OS is a Source backed by the process environment.
type OS struct{}

func (OS) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// Map is a fixed Source, used in tests.
type Map map[string]string

func (m Map) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// WorkDir returns the per-user root for default install prefixes.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, "atlasbuild"), nil
}
