package session

import (
	"context"
	"fmt"
	"os"

	"github.com/grovetools/pyfinder/command"
	"github.com/grovetools/pyfinder/config"
	"github.com/grovetools/pyfinder/errors"
	"github.com/grovetools/pyfinder/pkg/discovery"
	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/locators"
	"github.com/grovetools/pyfinder/pkg/metadata"
	"github.com/grovetools/pyfinder/pkg/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Resolver identifies single executables on demand. Results are cached
// by path and modification time, so a replaced interpreter is re-read.
type Resolver struct {
	host         *hostenv.Snapshot
	orchestrator *discovery.Orchestrator
	builder      *command.SafeBuilder
	cache        *lru.Cache[string, models.Record]
}

// NewResolver builds a resolver from the resolve section of cfg. exec may
// be nil to run real interpreters.
func NewResolver(host *hostenv.Snapshot, cfg *config.Config, exec command.Executor) (*Resolver, error) {
	timeout, err := cfg.Resolve.TimeoutDuration()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid resolve timeout")
	}
	builder := command.NewSafeBuilder()
	if exec != nil {
		builder = command.NewSafeBuilderWithExecutor(exec)
	}
	builder.WithTimeout(timeout)

	size := cfg.Resolve.CacheSize
	if size <= 0 {
		size = config.DefaultCacheSize
	}
	cache, err := lru.New[string, models.Record](size)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create resolve cache")
	}

	return &Resolver{
		host:         host,
		orchestrator: discovery.New(host, cfg.Search.Concurrency),
		builder:      builder,
		cache:        cache,
	}, nil
}

// Resolve classifies exe with the locators configured by opts. The
// interpreter is only executed when the filesystem leaves its version or
// prefix unknown.
func (r *Resolver) Resolve(ctx context.Context, opts locators.Options, exe string) (models.Record, error) {
	key := ""
	if info, err := os.Stat(exe); err == nil {
		key = fmt.Sprintf("%s|%d", r.host.NormalizePath(exe), info.ModTime().UnixNano())
		if record, ok := r.cache.Get(key); ok {
			return record, nil
		}
	}

	plan, err := discovery.DefaultPlan(r.host, opts)
	if err != nil {
		return models.Record{}, errors.ResolveFailed(exe, err.Error())
	}
	env, err := r.orchestrator.Identify(ctx, plan, exe)
	if err != nil {
		return models.Record{}, err
	}
	if env.Version == "" || env.Prefix == "" {
		if err := r.introspect(ctx, env); err != nil {
			return models.Record{}, err
		}
	}

	record := models.ToRecord(env)
	if key != "" {
		r.cache.Add(key, record)
	}
	return record, nil
}

// introspect runs the interpreter to fill what the filesystem could not.
func (r *Resolver) introspect(ctx context.Context, env *models.Environment) error {
	info, err := metadata.Introspect(ctx, r.builder, env.Executable)
	if err != nil {
		return errors.ResolveFailed(env.Executable, err.Error())
	}
	if env.Version == "" {
		env.Version = info.Version
	}
	if env.Prefix == "" {
		env.Prefix = info.Prefix
	}
	if env.Arch == "" {
		env.Arch = info.Arch()
	}
	return nil
}
