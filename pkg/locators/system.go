package locators

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/metadata"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/probe"
)

// System collects the interpreters reachable through PATH, the global
// search locations and explicitly supplied interpreter paths. Candidates
// are grouped by their real path; Resolve is the last-resort classifier.
type System struct {
	host  *hostenv.Snapshot
	extra []string
}

func NewSystem(host *hostenv.Snapshot, interpreterPaths []string) *System {
	return &System{host: host, extra: interpreterPaths}
}

func (s *System) Name() string { return "system" }

func (s *System) Find(ctx context.Context) (*models.LocatorResult, error) {
	groups := make(map[string][]string)
	var order []string
	add := func(path string) {
		real, err := filepath.EvalSymlinks(path)
		if err != nil || !probe.IsFile(real) {
			return
		}
		key := s.host.NormalizePath(real)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		for _, existing := range groups[key] {
			if s.host.NormalizePath(existing) == s.host.NormalizePath(path) {
				return
			}
		}
		groups[key] = append(groups[key], path)
	}

	for _, dir := range s.host.SearchDirs() {
		if canceled(ctx) {
			return nil, ctx.Err()
		}
		for _, exe := range probe.FindAllPythonBinaries(dir) {
			add(exe)
		}
	}
	for _, path := range s.extra {
		if probe.IsDir(path) {
			for _, exe := range probe.FindAllPythonBinaries(path) {
				add(exe)
			}
			continue
		}
		if probe.IsFile(path) {
			add(path)
		}
	}

	result := &models.LocatorResult{}
	for _, key := range order {
		paths := groups[key]
		sort.Strings(paths)
		exe := metadata.ShortestExecutable(paths...)
		env := &models.Environment{
			Executable: exe,
			Prefix:     probe.PrefixOf(exe),
			Kind:       models.KindUnknown,
		}
		if len(paths) > 1 {
			env.Symlinks = paths
		}
		result.Environments = append(result.Environments, env)
	}
	return result, nil
}

// Resolve classifies any remaining interpreter: System when it lives in a
// global search location, OtherGlobal otherwise.
func (s *System) Resolve(env *models.Environment) (*models.Environment, bool) {
	exe := executableOf(env)
	if exe == "" {
		return nil, false
	}
	kind := models.KindOtherGlobal
	dir := s.host.NormalizePath(filepath.Dir(exe))
	for _, global := range s.host.GlobalSearchPaths {
		if s.host.NormalizePath(global) == dir {
			kind = models.KindSystem
			break
		}
	}

	out := classified(env, kind)
	out.Executable = exe
	if out.Version == "" {
		out.Version, _ = metadata.VersionFromHeaders(out.Prefix)
	}
	return out, true
}
