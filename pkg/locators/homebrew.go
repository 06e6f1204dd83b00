package locators

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/metadata"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/probe"
)

var homebrewVersion = regexp.MustCompile(`/(\d+\.\d+\.\d+)/`)

// Homebrew reports the python symlinks in $HOMEBREW_PREFIX/bin, one
// environment per Cellar interpreter.
type Homebrew struct {
	host *hostenv.Snapshot
}

func NewHomebrew(host *hostenv.Snapshot) *Homebrew {
	return &Homebrew{host: host}
}

func (h *Homebrew) Name() string { return "homebrew" }

func (h *Homebrew) Find(ctx context.Context) (*models.LocatorResult, error) {
	result := &models.LocatorResult{}
	prefix := h.host.Get("HOMEBREW_PREFIX")
	if prefix == "" {
		return result, nil
	}

	bin := filepath.Join(prefix, "bin")
	entries, err := os.ReadDir(bin)
	if err != nil {
		return result, nil
	}

	links := make(map[string][]string)
	var targets []string
	for _, entry := range entries {
		if canceled(ctx) {
			return nil, ctx.Err()
		}
		link := filepath.Join(bin, entry.Name())
		target, ok := probe.SymlinkedPythonExecutable(link)
		if !ok {
			continue
		}
		if _, seen := links[target]; !seen {
			targets = append(targets, target)
		}
		links[target] = append(links[target], link)
	}
	sort.Strings(targets)

	for _, target := range targets {
		symlinks := links[target]
		sort.Strings(symlinks)
		env := &models.Environment{
			Executable: metadata.ShortestExecutable(symlinks...),
			Prefix:     filepath.Dir(filepath.Dir(target)),
			Kind:       models.KindHomebrew,
			Symlinks:   symlinks,
		}
		if m := homebrewVersion.FindStringSubmatch(filepath.ToSlash(target)); m != nil {
			env.Version = m[1]
		}
		result.Environments = append(result.Environments, env)
	}
	return result, nil
}

// Resolve claims an interpreter under HOMEBREW_PREFIX that resolves into
// the Cellar.
func (h *Homebrew) Resolve(env *models.Environment) (*models.Environment, bool) {
	prefix := h.host.Get("HOMEBREW_PREFIX")
	exe := env.Executable
	if prefix == "" || exe == "" || !probe.IsWithin(exe, prefix) {
		return nil, false
	}
	real, err := filepath.EvalSymlinks(exe)
	if err != nil || !strings.Contains(filepath.ToSlash(real), "/Cellar/") {
		return nil, false
	}

	out := env.Clone()
	out.Kind = models.KindHomebrew
	out.Prefix = filepath.Dir(filepath.Dir(real))
	if m := homebrewVersion.FindStringSubmatch(filepath.ToSlash(real)); m != nil {
		out.Version = m[1]
	}
	if len(out.Symlinks) == 0 {
		out.Symlinks = []string{exe}
	}
	return out, true
}
