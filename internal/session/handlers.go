package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/grovetools/pyfinder/config"
	"github.com/grovetools/pyfinder/errors"
	"github.com/grovetools/pyfinder/pkg/locators"
	"github.com/grovetools/pyfinder/pkg/rpc"
)

// handle routes a request to its handler.
func (s *Session) handle(ctx context.Context, msg *rpc.Message) (interface{}, error) {
	switch msg.Method {
	case rpc.MethodRefresh:
		var params rpc.RefreshParams
		if err := s.decodeParams(msg, &params); err != nil {
			return nil, err
		}
		return s.handleRefresh(ctx, params)
	case rpc.MethodResolve:
		var params rpc.ResolveParams
		if err := s.decodeParams(msg, &params); err != nil {
			return nil, err
		}
		return s.handleResolve(ctx, params)
	default:
		return nil, errors.MethodNotFound(msg.Method)
	}
}

// decodeParams unmarshals and validates request params. Absent params
// decode to the zero value before validation.
func (s *Session) decodeParams(msg *rpc.Message, target interface{}) error {
	if len(msg.Params) > 0 && string(msg.Params) != "null" {
		if err := json.Unmarshal(msg.Params, target); err != nil {
			return errors.InvalidParams(msg.Method, err)
		}
	}
	if err := s.validate.Struct(target); err != nil {
		return errors.InvalidParams(msg.Method, err)
	}
	return nil
}

func (s *Session) handleRefresh(ctx context.Context, params rpc.RefreshParams) (*rpc.RefreshResult, error) {
	start := time.Now()
	opts := s.options(params)

	s.mu.Lock()
	s.lastOpts = opts
	s.mu.Unlock()

	if err := s.refresh(ctx, opts); err != nil {
		return nil, err
	}
	s.startWatching(ctx)

	elapsed := time.Since(start)
	s.logger.WithField("duration", elapsed.Round(time.Millisecond)).Info("Refresh complete")
	return &rpc.RefreshResult{Duration: elapsed.Milliseconds()}, nil
}

func (s *Session) options(params rpc.RefreshParams) locators.Options {
	return SearchOptions(s.cfg, params)
}

// SearchOptions merges client hints with the configured search settings.
// Client values come first; the configured conda binary is only a fallback.
func SearchOptions(cfg *config.Config, params rpc.RefreshParams) locators.Options {
	search := cfg.Search
	opts := locators.Options{
		SearchPaths:      append(append([]string(nil), params.SearchPaths...), search.SearchPaths...),
		VirtualEnvPaths:  append(append([]string(nil), params.VirtualEnvPaths...), search.VirtualEnvPaths...),
		InterpreterPaths: params.PythonInterpreterPaths,
		CondaExecutable:  params.CondaExecutable,
		PoetryExecutable: params.PoetryExecutable,
		PipenvExecutable: params.PipenvExecutable,
		Exclude:          search.Exclude,
	}
	if opts.CondaExecutable == "" {
		opts.CondaExecutable = search.CondaExecutable
	}
	return opts
}

func (s *Session) handleResolve(ctx context.Context, params rpc.ResolveParams) (*rpc.ResolveResult, error) {
	start := time.Now()

	s.mu.Lock()
	opts := s.lastOpts
	s.mu.Unlock()

	record, err := s.resolver.Resolve(ctx, opts, params.Executable)
	if err != nil {
		return nil, err
	}
	return &rpc.ResolveResult{Duration: time.Since(start).Milliseconds(), Environment: record}, nil
}
