package command

import (
	"context"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/grovetools/pyfinder/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExecutable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"absolute path", "/usr/bin/python3", false},
		{"path with spaces", "/Users/me/My Envs/bin/python", false},
		{"relative path", "bin/python", true},
		{"empty", "", true},
		{"nul byte", "/usr/bin/py\x00thon", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateExecutable(tt.input)
			if runtime.GOOS == "windows" && tt.name == "absolute path" {
				t.Skip("unix path")
			}
			assert.Equal(t, tt.wantErr, err != nil, "validateExecutable(%q) error = %v", tt.input, err)
		})
	}
}

func TestValidateCondaEnvName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "bar", false},
		{"nested", "team/ml-3.11", false},
		{"empty", "", true},
		{"flag injection", "-p", true},
		{"spaces", "my env", true},
		{"shell metacharacters", "env;rm", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCondaEnvName(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "validateCondaEnvName(%q) error = %v", tt.input, err)
		})
	}
}

func TestSafeBuilder_Build(t *testing.T) {
	sb := NewSafeBuilder()
	ctx := context.Background()

	t.Run("valid command", func(t *testing.T) {
		cmd, err := sb.Build(ctx, "echo", "hello")
		require.NoError(t, err)
		assert.Equal(t, "echo", cmd.name)
		assert.Equal(t, []string{"hello"}, cmd.args)
		assert.Equal(t, "echo hello", cmd.String())
	})

	t.Run("empty command name", func(t *testing.T) {
		_, err := sb.Build(ctx, "")
		assert.Error(t, err)
	})
}

func TestSafeBuilder_Validate(t *testing.T) {
	sb := NewSafeBuilder()

	assert.NoError(t, sb.Validate("condaEnvName", "base"))
	assert.Error(t, sb.Validate("condaEnvName", "--help"))
	assert.Error(t, sb.Validate("unknownType", "value"))
}

func TestSafeBuilder_WithTimeout(t *testing.T) {
	sb := NewSafeBuilder().WithTimeout(20 * time.Minute)
	assert.Equal(t, MaxTimeout, sb.timeout)

	sb.WithTimeout(-time.Second)
	assert.Equal(t, time.Duration(0), sb.timeout)
}

func TestCommandOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		cmd, err := NewSafeBuilder().Build(ctx, "sh", "-c", "echo hi")
		require.NoError(t, err)
		out, err := cmd.Output()
		require.NoError(t, err)
		assert.Equal(t, "hi\n", string(out))
	})

	t.Run("failure carries stderr and exit code", func(t *testing.T) {
		cmd, err := NewSafeBuilder().Build(ctx, "sh", "-c", "echo broken >&2; exit 3")
		require.NoError(t, err)
		_, err = cmd.Output()
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeCommandFailed))

		fe := err.(*errors.FinderError)
		assert.Equal(t, "broken", fe.Details["stderr"])
		assert.Equal(t, 3, fe.Details["exitCode"])
	})

	t.Run("timeout", func(t *testing.T) {
		cmd, err := NewSafeBuilder().WithTimeout(100*time.Millisecond).Build(ctx, "sh", "-c", "exec sleep 5")
		require.NoError(t, err)

		start := time.Now()
		_, err = cmd.Output()
		require.Error(t, err)
		assert.Less(t, time.Since(start), 3*time.Second)
	})
}
