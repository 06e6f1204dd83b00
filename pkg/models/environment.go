package models

import "path/filepath"

// Manager is an environment manager binary. Many environments may point at
// the same Manager.
type Manager struct {
	Tool       ManagerTool
	Executable string
	Version    string
}

// Key is the manager's identity: its normalized executable path.
func (m *Manager) Key(normalize func(string) string) string {
	return normalize(m.Executable)
}

// Environment is a discovered interpreter or environment. Candidates coming
// out of a directory scan carry Kind == KindUnknown until classified.
type Environment struct {
	Executable  string
	Prefix      string
	Kind        Kind
	Version     string
	Manager     *Manager
	Project     string
	Name        string
	DisplayName string
	Arch        Arch
	Symlinks    []string
	RunCommand  []string
}

// Valid reports whether the environment can be identified at all.
func (e *Environment) Valid() bool {
	return e != nil && (e.Executable != "" || e.Prefix != "")
}

// Key is the deduplication identity: the normalized executable when known,
// otherwise the normalized prefix.
func (e *Environment) Key(normalize func(string) string) string {
	if e.Executable != "" {
		return normalize(e.Executable)
	}
	return normalize(e.Prefix)
}

// Clone returns a copy that can be modified without affecting e. The Manager
// is shared.
func (e *Environment) Clone() *Environment {
	c := *e
	c.Symlinks = append([]string(nil), e.Symlinks...)
	c.RunCommand = append([]string(nil), e.RunCommand...)
	return &c
}

// DefaultName derives a name from the prefix when none was set.
func (e *Environment) DefaultName() string {
	if e.Name != "" {
		return e.Name
	}
	if e.Prefix != "" {
		return filepath.Base(e.Prefix)
	}
	return ""
}

// LocatorResult is what a locator's Find returns.
type LocatorResult struct {
	Managers     []*Manager
	Environments []*Environment
}
