// Package models defines the environment data model shared by locators,
// the discovery orchestrator and the wire protocol.
package models

// Kind classifies an environment by the tool or convention that created it.
type Kind string

const (
	KindSystem            Kind = "system"
	KindVenv              Kind = "venv"
	KindVirtualEnv        Kind = "virtualEnv"
	KindVirtualEnvWrapper Kind = "virtualEnvWrapper"
	KindPipenv            Kind = "pipenv"
	KindConda             Kind = "conda"
	KindPyenv             Kind = "pyenv"
	KindPyenvVirtualEnv   Kind = "pyenvVirtualEnv"
	KindHomebrew          Kind = "homebrew"
	KindMicrosoftStore    Kind = "microsoftStore"
	KindOtherGlobal       Kind = "otherGlobal"
	KindUnknown           Kind = "unknown"
)

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{
	KindSystem, KindVenv, KindVirtualEnv, KindVirtualEnvWrapper, KindPipenv,
	KindConda, KindPyenv, KindPyenvVirtualEnv, KindHomebrew, KindMicrosoftStore,
	KindOtherGlobal, KindUnknown,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsVirtual reports whether environments of this kind are derived from a
// base interpreter rather than being an installation themselves.
func (k Kind) IsVirtual() bool {
	switch k {
	case KindVenv, KindVirtualEnv, KindVirtualEnvWrapper, KindPipenv, KindPyenvVirtualEnv:
		return true
	}
	return false
}

// Arch is the interpreter's pointer width.
type Arch string

const (
	ArchX64 Arch = "x64"
	ArchX86 Arch = "x86"
)

// ManagerTool names an environment manager.
type ManagerTool string

const (
	ToolConda ManagerTool = "conda"
	ToolPyenv ManagerTool = "pyenv"
)
