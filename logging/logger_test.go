package logging

import (
	"bytes"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) *bytes.Buffer {
	t.Helper()
	t.Setenv("PYFINDER_HOME", t.TempDir())
	t.Setenv("PYFINDER_CONFIG", "")
	resetForTest()

	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	t.Cleanup(func() {
		SetGlobalOutput(nopWriter{})
		resetForTest()
	})
	return &buf
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestNewLogger(t *testing.T) {
	isolate(t)

	logger := NewLogger("test-component")
	require.NotNil(t, logger)
	assert.Equal(t, "test-component", logger.Data["component"])
	assert.Same(t, logger, NewLogger("test-component"), "loggers are cached per component")
}

func TestLoggerWritesToConsoleSink(t *testing.T) {
	buf := isolate(t)

	NewLogger("conda").WithField("env", "base").Info("found environment")

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "[conda]")
	assert.Contains(t, out, "found environment env=base")
}

func TestEnvironmentVariables(t *testing.T) {
	isolate(t)
	t.Setenv("PYFINDER_LOG_LEVEL", "debug")
	t.Setenv("PYFINDER_LOG_CALLER", "true")

	logger := NewLogger("env-test")
	assert.Equal(t, logrus.DebugLevel, logger.Logger.GetLevel())
	assert.True(t, logger.Logger.ReportCaller)
}

func TestSetLevelAppliesToExistingAndFutureLoggers(t *testing.T) {
	isolate(t)

	before := NewLogger("before")
	SetLevel(logrus.WarnLevel)
	after := NewLogger("after")

	assert.Equal(t, logrus.WarnLevel, before.Logger.GetLevel())
	assert.Equal(t, logrus.WarnLevel, after.Logger.GetLevel())
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "test message",
				Data: logrus.Fields{
					"component": "pyenv",
					"key1":      "value1",
				},
			},
			want: []string{"[INFO]", "[pyenv]", "test message", "key1=value1"},
		},
		{
			name: "simple format",
			config: FormatConfig{
				DisableTimestamp: true,
				DisableComponent: true,
			},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "warning message",
				Data:    logrus.Fields{"component": "pyenv"},
			},
			want:    []string{"[WARN]", "warning message"},
			notWant: []string{"[pyenv]"},
		},
		{
			name:   "caller information",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Logger:  func() *logrus.Logger { l := logrus.New(); l.SetReportCaller(true); return l }(),
				Level:   logrus.InfoLevel,
				Message: "with caller",
				Data:    logrus.Fields{"component": "pyenv"},
				Caller: &runtime.Frame{
					File:     "/path/to/file.go",
					Line:     42,
					Function: "github.com/example/package.TestFunction",
				},
			},
			want: []string{"[file.go:42 package.TestFunction]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &TextFormatter{Config: tt.config}
			output, err := formatter.Format(tt.entry)
			require.NoError(t, err)

			for _, want := range tt.want {
				assert.Contains(t, string(output), want)
			}
			for _, notWant := range tt.notWant {
				assert.NotContains(t, string(output), notWant)
			}
		})
	}
}

func TestForwardDeliversWireLevels(t *testing.T) {
	isolate(t)
	t.Setenv("PYFINDER_LOG_LEVEL", "debug")

	type forwarded struct{ level, message string }
	var (
		mu  sync.Mutex
		got []forwarded
	)
	stop := Forward(func(level, message string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, forwarded{level, message})
	})

	logger := NewLogger("discovery")
	logger.Debug("scanning")
	logger.Info("refresh started")
	logger.WithField("locator", "conda").Warn("slow locator")
	logger.Error("locator failed")

	stop()
	logger.Error("after stop")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 4)
	assert.Equal(t, forwarded{"debug", "[discovery] scanning"}, got[0])
	assert.Equal(t, "info", got[1].level)
	assert.Equal(t, forwarded{"warning", "[discovery] slow locator locator=conda"}, got[2])
	assert.Equal(t, "error", got[3].level)
	for _, f := range got {
		assert.False(t, strings.Contains(f.message, "after stop"))
	}
}

func TestWireLevel(t *testing.T) {
	assert.Equal(t, "error", WireLevel(logrus.FatalLevel))
	assert.Equal(t, "warning", WireLevel(logrus.WarnLevel))
	assert.Equal(t, "info", WireLevel(logrus.InfoLevel))
	assert.Equal(t, "debug", WireLevel(logrus.TraceLevel))
}
