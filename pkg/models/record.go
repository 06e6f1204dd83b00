package models

// ManagerRecord is the wire form of a Manager.
type ManagerRecord struct {
	Tool       ManagerTool `json:"tool"`
	Executable string      `json:"executable"`
	Version    string      `json:"version,omitempty"`
}

// Record is the wire form of an Environment as sent in "environment"
// notifications and resolve responses.
type Record struct {
	DisplayName string         `json:"displayName,omitempty"`
	Name        string         `json:"name,omitempty"`
	Executable  string         `json:"executable,omitempty"`
	Category    Kind           `json:"category"`
	Version     string         `json:"version,omitempty"`
	Prefix      string         `json:"prefix,omitempty"`
	Manager     *ManagerRecord `json:"manager,omitempty"`
	Project     string         `json:"project,omitempty"`
	Arch        Arch           `json:"arch,omitempty"`
	Symlinks    []string       `json:"symlinks,omitempty"`
	RunCommand  []string       `json:"runCommand,omitempty"`
}

// ToManagerRecord converts a Manager for the wire.
func ToManagerRecord(m *Manager) *ManagerRecord {
	if m == nil {
		return nil
	}
	return &ManagerRecord{Tool: m.Tool, Executable: m.Executable, Version: m.Version}
}

// ToRecord converts an Environment for the wire, filling derived fields.
func ToRecord(e *Environment) Record {
	name := e.DefaultName()
	display := e.DisplayName
	if display == "" {
		display = name
	}
	run := e.RunCommand
	if len(run) == 0 && e.Executable != "" {
		run = []string{e.Executable}
	}
	kind := e.Kind
	if kind == "" {
		kind = KindUnknown
	}
	return Record{
		DisplayName: display,
		Name:        name,
		Executable:  e.Executable,
		Category:    kind,
		Version:     e.Version,
		Prefix:      e.Prefix,
		Manager:     ToManagerRecord(e.Manager),
		Project:     e.Project,
		Arch:        e.Arch,
		Symlinks:    e.Symlinks,
		RunCommand:  run,
	}
}
