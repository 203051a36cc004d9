// Package shell executes build tool command lines and captures their output.
package shell

import (
	"errors"
	"os/exec"
)

// Runner executes one shell command line in a working directory and returns
// its combined stdout/stderr and exit status.
//
// A nonzero exit status is not an error: callers inspect the status and the
// captured output to classify failures themselves. err is reserved for
// infrastructure problems (shell missing, bad working directory).
type Runner interface {
	Run(dir, cmdline string) (out string, exit int, err error)
}

// Exec is the Runner used for real builds, backed by /bin/sh.
type Exec struct{}

func (Exec) Run(dir, cmdline string) (string, int, error) {
	cmd := exec.Command("/bin/sh", "-c", cmdline)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), exitErr.ExitCode(), nil
		}
		return string(out), -1, err
	}
	return string(out), 0, nil
}
