// Package locators finds Python environments by the conventions of the tools
// that create them. Finders enumerate; classifiers decide whether a single
// candidate belongs to them.
package locators

import (
	"context"

	"github.com/grovetools/pyfinder/pkg/metadata"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/probe"
)

// Finder enumerates the environments and managers owned by one convention.
type Finder interface {
	Name() string
	Find(ctx context.Context) (*models.LocatorResult, error)
}

// Classifier claims a single unclassified candidate. It returns a classified
// copy, never modifying env.
type Classifier interface {
	Name() string
	Resolve(env *models.Environment) (*models.Environment, bool)
}

// Options carries per-refresh hints supplied by the caller.
type Options struct {
	SearchPaths      []string
	VirtualEnvPaths  []string
	InterpreterPaths []string
	CondaExecutable  string
	PoetryExecutable string
	PipenvExecutable string
	// Exclude holds glob patterns of directories never scanned.
	Exclude []string
}

// classified copies env with kind set and prefix and version filled from
// disk where still missing.
func classified(env *models.Environment, kind models.Kind) *models.Environment {
	out := env.Clone()
	out.Kind = kind
	if out.Prefix == "" && out.Executable != "" {
		out.Prefix = probe.PrefixOf(out.Executable)
	}
	if out.Version == "" && out.Executable != "" {
		if v, ok := metadata.VersionFromPyvenvCfg(out.Executable); ok {
			out.Version = v
		}
	}
	return out
}

// executableOf returns the interpreter of a candidate, looking inside the
// prefix when no executable was recorded.
func executableOf(env *models.Environment) string {
	if env.Executable != "" {
		return env.Executable
	}
	exe, _ := probe.FindPythonBinary(env.Prefix)
	return exe
}

func canceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
