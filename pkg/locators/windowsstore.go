package locators

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/models"
)

// WindowsStore finds the Microsoft Store python aliases.
type WindowsStore struct {
	host *hostenv.Snapshot
}

func NewWindowsStore(host *hostenv.Snapshot) *WindowsStore {
	return &WindowsStore{host: host}
}

func (w *WindowsStore) Name() string { return "windows-store" }

func (w *WindowsStore) Find(ctx context.Context) (*models.LocatorResult, error) {
	result := &models.LocatorResult{}
	if !w.host.IsWindows() || w.host.Home == "" {
		return result, nil
	}
	apps := w.host.HomePath("AppData", "Local", "Microsoft", "WindowsApps")
	matches, _ := filepath.Glob(filepath.Join(apps, "python3.*.exe"))
	sort.Strings(matches)
	for _, exe := range matches {
		if _, err := os.Lstat(exe); err != nil {
			continue
		}
		name := filepath.Base(exe)
		result.Environments = append(result.Environments, &models.Environment{
			Executable: exe,
			Prefix:     apps,
			Kind:       models.KindMicrosoftStore,
			Version:    name[len("python") : len(name)-len(".exe")],
			Name:       name,
		})
	}
	return result, nil
}
