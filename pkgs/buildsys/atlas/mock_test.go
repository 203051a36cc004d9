package atlas

import (
	"io"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/hpcforge/atlasbuild/internal/env"
	"github.com/hpcforge/atlasbuild/internal/shell"
	"github.com/hpcforge/atlasbuild/pkgs/buildsys"
)

// call records one command the spy executed.
type call struct {
	dir string
	cmd string
}

// result is what the spy answers for a matching command.
type result struct {
	out  string
	exit int
	err  error
}

// spyRunner implements shell.Runner for testing: it records every command
// and answers from a substring-keyed result table. The longest matching key
// wins; unmatched commands succeed with empty output.
type spyRunner struct {
	calls   []call
	results map[string]result
}

var _ shell.Runner = (*spyRunner)(nil)

func (s *spyRunner) Run(dir, cmdline string) (string, int, error) {
	s.calls = append(s.calls, call{dir: dir, cmd: cmdline})
	best := ""
	for key := range s.results {
		if strings.Contains(cmdline, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return "", 0, nil
	}
	r := s.results[best]
	return r.out, r.exit, r.err
}

func (s *spyRunner) commands() []string {
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.cmd
	}
	return out
}

// testEnv is the environment used by most tests.
func testEnv() env.Map {
	return env.Map{
		"CC":             "gcc",
		"F77":            "gfortran",
		"SOFTROOTLAPACK": "/opt/lapack",
	}
}

// newTestDriver wires a quiet driver around the given fakes.
func newTestDriver(sh shell.Runner, src env.Source) *buildsys.Driver {
	return buildsys.New(sh, src, log.New(io.Discard, "", 0))
}
