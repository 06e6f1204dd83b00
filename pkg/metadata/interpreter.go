package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/grovetools/pyfinder/command"
	"github.com/grovetools/pyfinder/pkg/models"
)

// introspectScript prints one JSON object describing the running interpreter.
const introspectScript = `import json, sys
print(json.dumps({
    "executable": sys.executable,
    "prefix": sys.prefix,
    "version": "%d.%d.%d" % sys.version_info[:3],
    "is64bit": sys.maxsize > 2**32,
}))`

// InterpreterInfo is what an interpreter reports about itself.
type InterpreterInfo struct {
	Executable string `json:"executable"`
	Prefix     string `json:"prefix"`
	Version    string `json:"version"`
	Is64Bit    bool   `json:"is64bit"`
}

// Arch maps the pointer width onto models.Arch.
func (i *InterpreterInfo) Arch() models.Arch {
	if i.Is64Bit {
		return models.ArchX64
	}
	return models.ArchX86
}

// Introspect runs executable to learn its version and prefix. It is only
// used by on-demand resolve, never by bulk discovery.
func Introspect(ctx context.Context, builder *command.SafeBuilder, executable string) (*InterpreterInfo, error) {
	if err := builder.Validate("executable", executable); err != nil {
		return nil, err
	}
	cmd, err := builder.Build(ctx, executable, "-I", "-c", introspectScript)
	if err != nil {
		return nil, err
	}
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	return parseIntrospection(out)
}

// parseIntrospection takes the last JSON line of output; site hooks may print
// before it.
func parseIntrospection(out []byte) (*InterpreterInfo, error) {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var info InterpreterInfo
		if err := json.Unmarshal(line, &info); err != nil {
			return nil, fmt.Errorf("decode interpreter info: %w", err)
		}
		if info.Version == "" {
			return nil, fmt.Errorf("interpreter did not report a version")
		}
		return &info, nil
	}
	return nil, fmt.Errorf("interpreter produced no JSON output")
}
