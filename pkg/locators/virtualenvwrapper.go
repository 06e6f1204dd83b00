package locators

import (
	"context"
	"os"
	"path/filepath"

	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/probe"
)

// VirtualEnvWrapper handles environments managed under WORKON_HOME.
type VirtualEnvWrapper struct {
	host *hostenv.Snapshot
}

func NewVirtualEnvWrapper(host *hostenv.Snapshot) *VirtualEnvWrapper {
	return &VirtualEnvWrapper{host: host}
}

func (v *VirtualEnvWrapper) Name() string { return "virtualenvwrapper" }

// WorkonHome returns the existing WORKON_HOME directory, or "".
func (v *VirtualEnvWrapper) WorkonHome() string {
	if dir := v.host.Get("WORKON_HOME"); dir != "" {
		dir = filepath.Clean(dir)
		if probe.IsDir(dir) {
			return dir
		}
		return ""
	}

	var defaults []string
	if v.host.IsWindows() {
		defaults = append(defaults, v.host.HomePath("Envs"))
	}
	defaults = append(defaults, v.host.HomePath("virtualenvs"))
	for _, dir := range defaults {
		if dir != "" && probe.IsDir(dir) {
			return dir
		}
	}
	return ""
}

func (v *VirtualEnvWrapper) Find(ctx context.Context) (*models.LocatorResult, error) {
	result := &models.LocatorResult{}
	home := v.WorkonHome()
	if home == "" {
		return result, nil
	}
	entries, err := os.ReadDir(home)
	if err != nil {
		return result, nil
	}
	for _, entry := range entries {
		if canceled(ctx) {
			return nil, ctx.Err()
		}
		prefix := filepath.Join(home, entry.Name())
		exe, ok := probe.FindPythonBinary(prefix)
		if !ok || !probe.IsVirtualenv(exe) {
			continue
		}
		env := classified(&models.Environment{Executable: exe, Prefix: prefix}, models.KindVirtualEnvWrapper)
		env.Name = entry.Name()
		result.Environments = append(result.Environments, env)
	}
	return result, nil
}

func (v *VirtualEnvWrapper) Resolve(env *models.Environment) (*models.Environment, bool) {
	exe := executableOf(env)
	if !probe.IsVirtualenvWrapperEnv(exe, v.WorkonHome()) {
		return nil, false
	}
	out := classified(env, models.KindVirtualEnvWrapper)
	out.Executable = exe
	return out, true
}
