package locators

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/probe"
)

// Pipenv claims environments whose .project file points at the project
// directory they were created for.
type Pipenv struct{}

func NewPipenv() *Pipenv { return &Pipenv{} }

func (Pipenv) Name() string { return "pipenv" }

func (Pipenv) Resolve(env *models.Environment) (*models.Environment, bool) {
	prefix := env.Prefix
	if prefix == "" {
		prefix = probe.PrefixOf(env.Executable)
	}
	if prefix == "" {
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(prefix, ".project"))
	if err != nil {
		return nil, false
	}
	project := strings.TrimSpace(string(data))
	if project == "" || !probe.IsDir(project) {
		return nil, false
	}

	out := classified(env, models.KindPipenv)
	out.Prefix = prefix
	out.Project = project
	return out, true
}
