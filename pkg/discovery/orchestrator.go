// Package discovery runs the locators in precedence order, classifies the
// candidates they leave behind and emits every environment exactly once
// per run.
package discovery

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/grovetools/pyfinder/errors"
	"github.com/grovetools/pyfinder/logging"
	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/locators"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/probe"
	"github.com/grovetools/pyfinder/pkg/profiling"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds concurrent classification when none is set.
const DefaultConcurrency = 8

// Emitter receives findings. Calls are serialized by the run.
type Emitter interface {
	EmitManager(m *models.Manager)
	EmitEnvironment(env *models.Environment)
}

// EmitterFuncs adapts plain functions to Emitter. Nil fields drop findings.
type EmitterFuncs struct {
	Manager     func(m *models.Manager)
	Environment func(env *models.Environment)
}

func (f EmitterFuncs) EmitManager(m *models.Manager) {
	if f.Manager != nil {
		f.Manager(m)
	}
}

func (f EmitterFuncs) EmitEnvironment(env *models.Environment) {
	if f.Environment != nil {
		f.Environment(env)
	}
}

// Run is the state of one discovery pass. Each refresh gets its own.
type Run struct {
	normalize func(string) string

	mu       sync.Mutex
	seen     map[string]bool
	managers map[string]bool

	emitMu    sync.Mutex
	pending   atomic.Int64
	completed atomic.Bool
	err       error
}

// Pending is the number of classification tasks in flight.
func (r *Run) Pending() int64 { return r.pending.Load() }

// Completed reports whether every phase finished.
func (r *Run) Completed() bool { return r.completed.Load() }

// Err returns the context error that stopped the run early, if any.
func (r *Run) Err() error { return r.err }

// Seen reports whether the identity key of env was emitted by this run.
func (r *Run) Seen(env *models.Environment) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seenLocked(env)
}

func (r *Run) keys(env *models.Environment) []string {
	keys := []string{env.Key(r.normalize)}
	for _, link := range env.Symlinks {
		keys = append(keys, r.normalize(link))
	}
	return keys
}

func (r *Run) seenLocked(env *models.Environment) bool {
	for _, key := range r.keys(env) {
		if r.seen[key] {
			return true
		}
	}
	return false
}

// claim marks env as emitted. It returns false when env, or one of its
// symlinks, was already claimed.
func (r *Run) claim(env *models.Environment) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seenLocked(env) {
		return false
	}
	for _, key := range r.keys(env) {
		r.seen[key] = true
	}
	return true
}

func (r *Run) claimManager(m *models.Manager) bool {
	if m == nil || m.Executable == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := m.Key(r.normalize)
	if r.managers[key] {
		return false
	}
	r.managers[key] = true
	return true
}

// Orchestrator executes plans.
type Orchestrator struct {
	host        *hostenv.Snapshot
	concurrency int
	log         *logrus.Entry
}

// New creates an orchestrator. concurrency bounds the classification
// tasks of a phase; values below one select DefaultConcurrency.
func New(host *hostenv.Snapshot, concurrency int) *Orchestrator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Orchestrator{
		host:        host,
		concurrency: concurrency,
		log:         logging.NewLogger("discovery"),
	}
}

// Run executes plan and returns once every phase has finished or ctx is
// done. Locator failures are logged and skipped.
func (o *Orchestrator) Run(ctx context.Context, plan *Plan, emit Emitter) *Run {
	run := &Run{
		normalize: o.host.NormalizePath,
		seen:      make(map[string]bool),
		managers:  make(map[string]bool),
	}
	defer profiling.Start("discovery.run").Stop()

	for _, finder := range plan.Finders {
		if run.err = ctx.Err(); run.err != nil {
			return run
		}
		result := o.find(ctx, finder)
		if result == nil {
			continue
		}
		for _, m := range result.Managers {
			o.emitManager(run, emit, m)
		}
		for _, env := range result.Environments {
			o.emitEnvironment(run, emit, env)
		}
	}

	if err := o.classifyPhase(ctx, run, plan.Scan, plan.ScanRules, emit); err != nil {
		run.err = err
		return run
	}
	if err := o.classifyPhase(ctx, run, plan.Global, plan.GlobalRules, emit); err != nil {
		run.err = err
		return run
	}

	run.completed.Store(true)
	return run
}

// Identify classifies a single executable without enumerating anything.
func (o *Orchestrator) Identify(ctx context.Context, plan *Plan, exe string) (*models.Environment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !probe.IsFile(exe) {
		if _, err := os.Stat(exe); err != nil {
			return nil, errors.ExecutableNotFound(exe)
		}
		return nil, errors.ResolveFailed(exe, "not a regular file")
	}

	env := &models.Environment{
		Executable: exe,
		Prefix:     probe.PrefixOf(exe),
		Kind:       models.KindUnknown,
	}
	out, err := o.classify(plan.IdentifyRules, env)
	if err != nil {
		return nil, errors.ResolveFailed(exe, err.Error())
	}
	if out == nil {
		return nil, errors.ResolveFailed(exe, "no locator recognised the interpreter")
	}
	return out, nil
}

func (o *Orchestrator) find(ctx context.Context, finder locators.Finder) *models.LocatorResult {
	if finder == nil {
		return nil
	}
	defer profiling.Start("locator." + finder.Name()).Stop()

	var result *models.LocatorResult
	err := o.guard(func() error {
		var err error
		result, err = finder.Find(ctx)
		return err
	})
	if err != nil {
		o.log.WithError(errors.LocatorFailed(finder.Name(), err)).
			WithField("locator", finder.Name()).
			Error("Locator failed")
		return nil
	}
	return result
}

// classifyPhase runs rules over every candidate of source concurrently.
func (o *Orchestrator) classifyPhase(ctx context.Context, run *Run, source locators.Finder, rules []Rule, emit Emitter) error {
	if source == nil {
		return ctx.Err()
	}
	defer profiling.Start("phase." + source.Name()).Stop()

	var candidates *models.LocatorResult
	err := o.guard(func() error {
		var err error
		candidates, err = source.Find(ctx)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.log.WithError(errors.LocatorFailed(source.Name(), err)).
			WithField("locator", source.Name()).
			Error("Locator failed")
		return nil
	}
	if candidates == nil {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, candidate := range candidates.Environments {
		if !candidate.Valid() || run.Seen(candidate) {
			continue
		}
		run.pending.Add(1)
		g.Go(func() error {
			defer run.pending.Add(-1)
			if err := gctx.Err(); err != nil {
				return err
			}
			env, err := o.classify(rules, candidate)
			if err != nil {
				o.log.WithError(err).
					WithField("executable", candidate.Executable).
					Error("Classification failed")
				return nil
			}
			if env != nil {
				o.emitEnvironment(run, emit, env)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// classify walks rules in order; the first match wins. A panicking rule is
// reported as an error.
func (o *Orchestrator) classify(rules []Rule, candidate *models.Environment) (out *models.Environment, err error) {
	err = o.guard(func() error {
		for _, rule := range rules {
			if rule.Match != nil && !rule.Match(candidate) {
				continue
			}
			if env, ok := rule.Classify(candidate); ok {
				out = env
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (o *Orchestrator) emitManager(run *Run, emit Emitter, m *models.Manager) {
	if !run.claimManager(m) {
		return
	}
	run.emitMu.Lock()
	defer run.emitMu.Unlock()
	emit.EmitManager(m)
}

func (o *Orchestrator) emitEnvironment(run *Run, emit Emitter, env *models.Environment) {
	if !env.Valid() || !run.claim(env) {
		return
	}
	if env.Manager != nil {
		o.emitManager(run, emit, env.Manager)
	}
	run.emitMu.Lock()
	defer run.emitMu.Unlock()
	emit.EmitEnvironment(env)
}

// guard runs fn, converting a panic into an error.
func (o *Orchestrator) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
