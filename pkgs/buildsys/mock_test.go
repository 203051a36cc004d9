package buildsys

import (
	"io"

	"github.com/qiniu/x/log"

	"github.com/hpcforge/atlasbuild/internal/env"
	"github.com/hpcforge/atlasbuild/internal/shell"
)

// fakeRunner records commands and returns canned results in call order.
type fakeRunner struct {
	dirs    []string
	cmds    []string
	exits   []int // consumed per call; exhausted entries read as 0
	outputs []string
}

var _ shell.Runner = (*fakeRunner)(nil)

func (f *fakeRunner) Run(dir, cmdline string) (string, int, error) {
	i := len(f.cmds)
	f.dirs = append(f.dirs, dir)
	f.cmds = append(f.cmds, cmdline)
	out, exit := "", 0
	if i < len(f.outputs) {
		out = f.outputs[i]
	}
	if i < len(f.exits) {
		exit = f.exits[i]
	}
	return out, exit, nil
}

func quietDriver(sh shell.Runner) *Driver {
	return New(sh, env.Map{}, log.New(io.Discard, "", 0))
}

// orderPlugin records the stage order the driver uses.
type orderPlugin struct {
	stages  []string
	failAt  string
	lastJob int
}

func (o *orderPlugin) stage(name string) error {
	o.stages = append(o.stages, name)
	if o.failAt == name {
		return &ConfigureError{Output: "boom"}
	}
	return nil
}

func (o *orderPlugin) Configure(cfg *Config) error { return o.stage("configure") }
func (o *orderPlugin) SetParallelism(cfg *Config, requested int) {
	o.lastJob = requested
	o.stage("parallelism")
}
func (o *orderPlugin) Build(cfg *Config) error   { return o.stage("build") }
func (o *orderPlugin) Test(cfg *Config) error    { return o.stage("test") }
func (o *orderPlugin) Install(cfg *Config) error { return o.stage("install") }
func (o *orderPlugin) Verify(cfg *Config) error  { return o.stage("verify") }
