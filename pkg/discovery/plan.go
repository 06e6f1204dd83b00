package discovery

import (
	"path/filepath"

	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/locators"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/probe"
)

// Rule is one step of a classification chain. Match is a cheap filesystem
// check; Classify produces the classified environment when Match holds.
type Rule struct {
	Name     string
	Match    func(env *models.Environment) bool
	Classify func(env *models.Environment) (*models.Environment, bool)
}

// Plan fixes what a run executes and in which order.
type Plan struct {
	// Finders run first, one after another, in precedence order.
	Finders []locators.Finder
	// Scan yields candidates for the generic phase, classified by ScanRules.
	Scan      locators.Finder
	ScanRules []Rule
	// Global yields the interpreters found on PATH and in known locations,
	// classified by GlobalRules.
	Global      locators.Finder
	GlobalRules []Rule
	// IdentifyRules classify a single executable for on-demand resolve.
	IdentifyRules []Rule
}

// DefaultPlan wires every locator against host with the caller's hints.
func DefaultPlan(host *hostenv.Snapshot, opts locators.Options) (*Plan, error) {
	conda := locators.NewConda(host, opts.CondaExecutable)
	pyenv := locators.NewPyenv(host, conda)
	homebrew := locators.NewHomebrew(host)
	vew := locators.NewVirtualEnvWrapper(host)
	system := locators.NewSystem(host, opts.InterpreterPaths)

	scan, err := locators.NewGlobalVirtualEnvs(host, opts, vew.WorkonHome())
	if err != nil {
		return nil, err
	}

	condaRule := Rule{Name: "conda", Match: isConda, Classify: conda.Resolve}
	pipenvRule := Rule{Name: "pipenv", Match: hasProjectFile, Classify: locators.NewPipenv().Resolve}
	vewRule := Rule{
		Name: "virtualenvwrapper",
		Match: func(env *models.Environment) bool {
			return probe.IsVirtualenvWrapperEnv(executable(env), vew.WorkonHome())
		},
		Classify: vew.Resolve,
	}
	venvRule := Rule{
		Name:     "venv",
		Match:    func(env *models.Environment) bool { return probe.IsVenv(executable(env)) },
		Classify: locators.NewVenv().Resolve,
	}
	virtualenvRule := Rule{
		Name:     "virtualenv",
		Match:    func(env *models.Environment) bool { return probe.IsVirtualenv(executable(env)) },
		Classify: locators.NewVirtualEnv().Resolve,
	}
	systemRule := Rule{
		Name:     "system",
		Match:    func(env *models.Environment) bool { return executable(env) != "" },
		Classify: system.Resolve,
	}

	return &Plan{
		Finders:     []locators.Finder{pyenv, homebrew, conda, locators.NewWindowsStore(host)},
		Scan:        scan,
		ScanRules:   []Rule{pipenvRule, vewRule, venvRule, virtualenvRule},
		Global:      system,
		GlobalRules: []Rule{condaRule, pipenvRule, vewRule, venvRule, virtualenvRule, systemRule},
		IdentifyRules: []Rule{
			condaRule,
			{Name: "pyenv", Match: always, Classify: pyenv.Resolve},
			{Name: "homebrew", Match: always, Classify: homebrew.Resolve},
			pipenvRule, vewRule, venvRule, virtualenvRule, systemRule,
		},
	}, nil
}

func always(*models.Environment) bool { return true }

func isConda(env *models.Environment) bool {
	if env.Prefix != "" {
		return probe.IsCondaEnvironment(env.Prefix)
	}
	return probe.IsCondaEnvironment(env.Executable)
}

func hasProjectFile(env *models.Environment) bool {
	prefix := env.Prefix
	if prefix == "" {
		prefix = probe.PrefixOf(env.Executable)
	}
	return prefix != "" && probe.IsFile(filepath.Join(prefix, ".project"))
}

func executable(env *models.Environment) string {
	if env.Executable != "" {
		return env.Executable
	}
	exe, _ := probe.FindPythonBinary(env.Prefix)
	return exe
}
