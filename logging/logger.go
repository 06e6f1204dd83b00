package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/grovetools/pyfinder/config"
	"github.com/grovetools/pyfinder/pkg/paths"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// levelOverride, when set, wins over env and config (e.g. --verbose).
	levelOverride *logrus.Level

	cfgOnce sync.Once
	fileCfg Config
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// Loggers are cached per component.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logCfg := loadConfig()
	logger := logrus.New()

	logger.SetLevel(resolveLevel(logCfg))

	if os.Getenv("PYFINDER_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{
			Config:   logCfg.Format,
			Colorize: isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		})
	}

	var writers []io.Writer
	if logCfg.Format.Stderr != "never" {
		writers = append(writers, GetGlobalOutput())
	}
	if logCfg.File.Enabled {
		if file := openLogFile(logger, logCfg.File.Path, component); file != nil {
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	logger.AddHook(forwarder)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// SetLevel forces the level of every existing and future logger.
func SetLevel(level logrus.Level) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	levelOverride = &level
	for _, entry := range loggers {
		entry.Logger.SetLevel(level)
	}
}

func resolveLevel(logCfg Config) logrus.Level {
	if levelOverride != nil {
		return *levelOverride
	}
	levelStr := "info"
	if env := os.Getenv("PYFINDER_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// loadConfig reads the logging section once per process.
func loadConfig() Config {
	cfgOnce.Do(func() {
		cfg, err := config.LoadDefault()
		if err != nil {
			logrus.Warnf("Failed to load configuration for logging: %v", err)
			return
		}
		if err := cfg.UnmarshalExtension("logging", &fileCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	})
	return fileCfg
}

func openLogFile(logger *logrus.Logger, path, component string) *os.File {
	if path == "" {
		path = paths.LogFile(component)
	}
	path = expandPath(path)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Warnf("Failed to create log directory %s: %v", filepath.Dir(path), err)
		return nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.Warnf("Failed to open log file %s: %v", path, err)
		return nil
	}
	return file
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// resetForTest drops cached loggers and configuration.
func resetForTest() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	loggers = make(map[string]*logrus.Entry)
	levelOverride = nil
	cfgOnce = sync.Once{}
	fileCfg = Config{}
}
