// Package profiling records nested timing spans for a discovery pass and
// prints them as a tree.
package profiling

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	children []*span
	profiler *Profiler
}

func (s *span) Stop() {
	s.profiler.endSpan(s, time.Since(s.start))
}

// Profiler collects spans. Spans opened while another is open become its
// children; closing them out of order is tolerated.
type Profiler struct {
	mu      sync.Mutex
	enabled bool
	root    *span
	open    []*span
}

var defaultProfiler = &Profiler{}

// Enable turns on the global profiler. Calling it again is a no-op.
func Enable() {
	defaultProfiler.mu.Lock()
	defer defaultProfiler.mu.Unlock()
	defaultProfiler.enableLocked()
}

// Enabled reports whether spans are being recorded.
func Enabled() bool {
	defaultProfiler.mu.Lock()
	defer defaultProfiler.mu.Unlock()
	return defaultProfiler.enabled
}

// Reset discards every recorded span and disables the profiler.
func Reset() {
	defaultProfiler.mu.Lock()
	defer defaultProfiler.mu.Unlock()
	defaultProfiler.enabled = false
	defaultProfiler.root = nil
	defaultProfiler.open = nil
}

// Start begins a span; stop it with defer Start(name).Stop().
func Start(name string) Stopper {
	return defaultProfiler.startSpan(name)
}

// Summarize writes the span tree to w.
func Summarize(w io.Writer) {
	defaultProfiler.mu.Lock()
	defer defaultProfiler.mu.Unlock()

	if !defaultProfiler.enabled || defaultProfiler.root == nil {
		return
	}
	root := defaultProfiler.root
	total := time.Since(root.start)

	fmt.Fprintln(w, "\n--- Timing Profile ---")
	for _, child := range sorted(root.children) {
		printSpan(w, child, 0, total)
	}
	fmt.Fprintln(w, "----------------------")
}

// Totals sums the duration of finished spans by name.
func Totals() map[string]time.Duration {
	defaultProfiler.mu.Lock()
	defer defaultProfiler.mu.Unlock()

	out := make(map[string]time.Duration)
	if defaultProfiler.root == nil {
		return out
	}
	var walk func(s *span)
	walk = func(s *span) {
		for _, child := range s.children {
			out[child.name] += child.duration
			walk(child)
		}
	}
	walk(defaultProfiler.root)
	return out
}

func (p *Profiler) enableLocked() {
	if p.enabled {
		return
	}
	p.enabled = true
	p.root = &span{name: "root", start: time.Now(), profiler: p}
	p.open = []*span{p.root}
}

func (p *Profiler) startSpan(name string) Stopper {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return noopStopper{}
	}
	parent := p.open[len(p.open)-1]
	s := &span{name: name, start: time.Now(), profiler: p}
	parent.children = append(parent.children, s)
	p.open = append(p.open, s)
	return s
}

func (p *Profiler) endSpan(s *span, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s.duration = d
	for i := len(p.open) - 1; i > 0; i-- {
		if p.open[i] == s {
			p.open = append(p.open[:i], p.open[i+1:]...)
			return
		}
	}
}

func sorted(spans []*span) []*span {
	out := append([]*span(nil), spans...)
	sort.Slice(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })
	return out
}

func printSpan(w io.Writer, s *span, depth int, total time.Duration) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(s.duration) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s- %s (%v, %.1f%%)\n", strings.Repeat("  ", depth), s.name, s.duration.Round(100*time.Microsecond), percentage)
	for _, child := range sorted(s.children) {
		printSpan(w, child, depth+1, total)
	}
}

type noopStopper struct{}

func (noopStopper) Stop() {}
