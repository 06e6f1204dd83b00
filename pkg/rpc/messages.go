package rpc

import "github.com/grovetools/pyfinder/pkg/models"

// Methods handled by the server.
const (
	MethodRefresh = "refresh"
	MethodResolve = "resolve"
)

// Notifications sent by the server.
const (
	NotifyEnvironment = "environment"
	NotifyManager     = "manager"
	NotifyLog         = "log"
)

// RefreshParams are the hints a client passes with a refresh.
type RefreshParams struct {
	SearchPaths            []string `json:"search_paths,omitempty" validate:"omitempty,dive,required"`
	PythonInterpreterPaths []string `json:"python_interpreter_paths,omitempty" validate:"omitempty,dive,required"`
	VirtualEnvPaths        []string `json:"virtual_env_paths,omitempty" validate:"omitempty,dive,required"`
	CondaExecutable        string   `json:"conda_executable,omitempty" validate:"omitempty,max=4096"`
	PoetryExecutable       string   `json:"poetry_executable,omitempty" validate:"omitempty,max=4096"`
	PipenvExecutable       string   `json:"pipenv_executable,omitempty" validate:"omitempty,max=4096"`
}

// RefreshResult reports how long the refresh took, in milliseconds.
type RefreshResult struct {
	Duration int64 `json:"duration"`
}

// ResolveParams names the interpreter to resolve.
type ResolveParams struct {
	Executable string `json:"executable" validate:"required,max=4096"`
}

// ResolveResult is the fully resolved environment.
type ResolveResult struct {
	Duration    int64         `json:"duration"`
	Environment models.Record `json:"environment"`
}

// LogParams is the payload of a log notification.
type LogParams struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
