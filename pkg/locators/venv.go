package locators

import (
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/probe"
)

// Venv claims interpreters governed by a pyvenv.cfg.
type Venv struct{}

func NewVenv() *Venv { return &Venv{} }

func (Venv) Name() string { return "venv" }

func (Venv) Resolve(env *models.Environment) (*models.Environment, bool) {
	exe := executableOf(env)
	if !probe.IsVenv(exe) {
		return nil, false
	}
	out := classified(env, models.KindVenv)
	out.Executable = exe
	return out, true
}

// VirtualEnv claims interpreters with an activate script beside them.
type VirtualEnv struct{}

func NewVirtualEnv() *VirtualEnv { return &VirtualEnv{} }

func (VirtualEnv) Name() string { return "virtualenv" }

func (VirtualEnv) Resolve(env *models.Environment) (*models.Environment, bool) {
	exe := executableOf(env)
	if !probe.IsVirtualenv(exe) {
		return nil, false
	}
	out := classified(env, models.KindVirtualEnv)
	out.Executable = exe
	return out, true
}
