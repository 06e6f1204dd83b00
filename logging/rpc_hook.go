package logging

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Sink receives log entries that should reach a connected client as
// "log" notifications. level is one of info, warning, error or debug.
type Sink func(level, message string)

// forwardHook fans entries out to every registered Sink.
type forwardHook struct {
	mu    sync.RWMutex
	next  int
	sinks map[int]Sink
}

var forwarder = &forwardHook{sinks: make(map[int]Sink)}

// Forward registers sink for entries from every pyfinder logger. The
// returned func unregisters it.
func Forward(sink Sink) (stop func()) {
	forwarder.mu.Lock()
	id := forwarder.next
	forwarder.next++
	forwarder.sinks[id] = sink
	forwarder.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			forwarder.mu.Lock()
			delete(forwarder.sinks, id)
			forwarder.mu.Unlock()
		})
	}
}

func (h *forwardHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *forwardHook) Fire(entry *logrus.Entry) error {
	h.mu.RLock()
	if len(h.sinks) == 0 {
		h.mu.RUnlock()
		return nil
	}
	sinks := make([]Sink, 0, len(h.sinks))
	for _, s := range h.sinks {
		sinks = append(sinks, s)
	}
	h.mu.RUnlock()

	level, message := WireLevel(entry.Level), renderMessage(entry)
	for _, s := range sinks {
		s(level, message)
	}
	return nil
}

// WireLevel maps a logrus level onto the protocol's log levels.
func WireLevel(level logrus.Level) string {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return "error"
	case logrus.WarnLevel:
		return "warning"
	case logrus.InfoLevel:
		return "info"
	default:
		return "debug"
	}
}

func renderMessage(entry *logrus.Entry) string {
	var b strings.Builder
	if component, ok := entry.Data["component"]; ok {
		fmt.Fprintf(&b, "[%v] ", component)
	}
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if key != "component" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, entry.Data[key])
	}
	return b.String()
}
