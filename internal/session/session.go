// Package session serves the JSON-RPC protocol for one client connection:
// it reads requests, runs discoveries and resolves, and streams findings
// back as notifications.
package session

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/grovetools/pyfinder/command"
	"github.com/grovetools/pyfinder/config"
	"github.com/grovetools/pyfinder/errors"
	"github.com/grovetools/pyfinder/logging"
	"github.com/grovetools/pyfinder/pkg/discovery"
	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/locators"
	"github.com/grovetools/pyfinder/pkg/rpc"
	"github.com/sirupsen/logrus"
)

// Options configures a Session. Zero values select the defaults.
type Options struct {
	// Host is the machine snapshot locators read; defaults to hostenv.Capture.
	Host *hostenv.Snapshot
	// Config defaults to config.Default.
	Config *config.Config
	// Executor runs interpreters for on-demand resolve.
	Executor command.Executor
	// WatchDebounce overrides DefaultDebounce.
	WatchDebounce time.Duration
}

// Session is a single client connection.
type Session struct {
	id  string
	in  *rpc.Reader
	out *rpc.Writer

	host         *hostenv.Snapshot
	cfg          *config.Config
	orchestrator *discovery.Orchestrator
	dispatcher   *Dispatcher
	resolver     *Resolver
	validate     *validator.Validate
	debounce     time.Duration
	logger       *logrus.Entry

	wg        sync.WaitGroup
	watchOnce sync.Once

	// lastOpts are the options of the latest refresh, reused by resolve
	// and watcher-triggered refreshes. closed is set once Serve starts
	// tearing down; no work may be added to wg after that.
	mu       sync.Mutex
	lastOpts locators.Options
	closed   bool
}

// New creates a session reading requests from r and writing to w.
func New(r io.Reader, w io.Writer, opts Options) (*Session, error) {
	host := opts.Host
	if host == nil {
		host = hostenv.Capture()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	resolver, err := NewResolver(host, cfg, opts.Executor)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := logging.NewLogger("session").WithField("session", id[:8])
	out := rpc.NewWriter(w)

	s := &Session{
		id:           id,
		in:           rpc.NewReader(r),
		out:          out,
		host:         host,
		cfg:          cfg,
		orchestrator: discovery.New(host, cfg.Search.Concurrency),
		dispatcher:   NewDispatcher(out, host.NormalizePath, logger),
		resolver:     resolver,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		debounce:     opts.WatchDebounce,
		logger:       logger,
	}
	s.lastOpts = s.options(rpc.RefreshParams{})
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Serve handles requests until the peer closes the stream, a frame cannot
// be read, or ctx is canceled. In-flight requests are canceled and awaited
// before it returns.
func (s *Session) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopForward := logging.Forward(func(level, message string) {
		// Must not log: this sink is itself fed by the loggers.
		_ = s.out.Notify(rpc.NotifyLog, rpc.LogParams{Level: level, Message: message})
	})
	defer stopForward()

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		s.dispatcher.Start(ctx)
	}()

	s.logger.Debug("Session started")
	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			body, err := s.in.ReadFrame()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- body:
			case <-ctx.Done():
				return
			}
		}
	}()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err = <-readErr:
			break loop
		case body := <-frames:
			s.dispatch(ctx, body)
		}
	}

	cancel()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
	<-dispatcherDone
	s.logger.Debug("Session ended")

	if err == io.EOF || errors.Is(err, errors.ErrCodeConnectionClosed) {
		return nil
	}
	return err
}

// dispatch decodes one frame and hands requests to their own goroutine.
func (s *Session) dispatch(ctx context.Context, body []byte) {
	var msg rpc.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		_ = s.out.ReplyError(nil, rpc.ErrorFromCode(errors.MalformedFrame("body is not valid JSON", err)))
		return
	}
	if !msg.IsRequest() {
		if msg.Method != "" {
			s.logger.WithField("method", msg.Method).Debug("Ignoring notification")
		}
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result, err := s.handle(ctx, &msg)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			_ = s.out.ReplyError(msg.ID, rpc.ErrorFromCode(err))
			return
		}
		_ = s.out.Reply(msg.ID, result)
	}()
}

// refresh runs one discovery and waits until all of its findings were
// written. It is used by client requests and by the watcher alike.
func (s *Session) refresh(ctx context.Context, opts locators.Options) error {
	plan, err := discovery.DefaultPlan(s.host, opts)
	if err != nil {
		return errors.InvalidParams(rpc.MethodRefresh, err)
	}
	run := s.orchestrator.Run(ctx, plan, runEmitter{ctx: ctx, dispatcher: s.dispatcher})
	if err := run.Err(); err != nil {
		return err
	}
	return s.dispatcher.Flush(ctx)
}

// startWatching begins watching manager directories after the first
// refresh, when enabled.
func (s *Session) startWatching(ctx context.Context) {
	if !s.cfg.Search.WatchEnabled() {
		return
	}
	s.watchOnce.Do(func() {
		paths := []string{
			locators.NewPyenv(s.host, nil).VersionsDir(),
			s.host.HomePath(".conda", "environments.txt"),
		}
		w, err := NewWatcher(s.debounce, s.logger, func(string) { s.backgroundRefresh(ctx) }, paths...)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to start watcher")
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			w.Start(ctx)
		}()
	})
}

// backgroundRefresh re-runs discovery with the latest client hints. No
// response is sent; only new findings are reported.
func (s *Session) backgroundRefresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	opts := s.lastOpts
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := s.refresh(ctx, opts); err != nil && ctx.Err() == nil {
			s.logger.WithError(err).Warn("Background refresh failed")
		}
	}()
}
