package session

import (
	"context"

	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/rpc"
	"github.com/sirupsen/logrus"
)

// EventType identifies what an Event carries.
type EventType int

const (
	EventManager EventType = iota
	EventEnvironment
	// EventFlush is acknowledged once every earlier event was written.
	EventFlush
)

// Event is a finding handed from a discovery run to the dispatcher.
type Event struct {
	Type        EventType
	Manager     *models.Manager
	Environment *models.Environment
	done        chan struct{}
}

// Dispatcher is the single consumer of discovery events for a session. It
// alone owns the reported sets, so each manager and environment reaches
// the client at most once per connection.
type Dispatcher struct {
	out       *rpc.Writer
	normalize func(string) string
	events    chan Event
	logger    *logrus.Entry

	reportedManagers     map[string]bool
	reportedEnvironments map[string]bool
}

// NewDispatcher creates a dispatcher writing notifications to out.
func NewDispatcher(out *rpc.Writer, normalize func(string) string, logger *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		out:                  out,
		normalize:            normalize,
		events:               make(chan Event, 256),
		logger:               logger,
		reportedManagers:     make(map[string]bool),
		reportedEnvironments: make(map[string]bool),
	}
}

// Start consumes events until ctx is canceled.
func (d *Dispatcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			d.apply(ev)
		}
	}
}

// Submit queues ev. It returns false when ctx ended first, in which case
// the event is dropped.
func (d *Dispatcher) Submit(ctx context.Context, ev Event) bool {
	select {
	case <-ctx.Done():
		return false
	case d.events <- ev:
		return true
	}
}

// Flush blocks until every event submitted before it has been written.
func (d *Dispatcher) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !d.Submit(ctx, Event{Type: EventFlush, done: done}) {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (d *Dispatcher) apply(ev Event) {
	switch ev.Type {
	case EventFlush:
		close(ev.done)
	case EventManager:
		d.reportManager(ev.Manager)
	case EventEnvironment:
		env := ev.Environment
		if env == nil {
			return
		}
		if env.Manager != nil {
			d.reportManager(env.Manager)
		}
		key := env.Key(d.normalize)
		if d.reportedEnvironments[key] {
			return
		}
		d.reportedEnvironments[key] = true
		if err := d.out.Notify(rpc.NotifyEnvironment, models.ToRecord(env)); err != nil {
			d.logger.WithError(err).Debug("Failed to write environment notification")
		}
	}
}

func (d *Dispatcher) reportManager(m *models.Manager) {
	if m == nil || m.Executable == "" {
		return
	}
	key := m.Key(d.normalize)
	if d.reportedManagers[key] {
		return
	}
	d.reportedManagers[key] = true
	if err := d.out.Notify(rpc.NotifyManager, models.ToManagerRecord(m)); err != nil {
		d.logger.WithError(err).Debug("Failed to write manager notification")
	}
}

// runEmitter feeds one discovery run into the dispatcher.
type runEmitter struct {
	ctx        context.Context
	dispatcher *Dispatcher
}

func (e runEmitter) EmitManager(m *models.Manager) {
	e.dispatcher.Submit(e.ctx, Event{Type: EventManager, Manager: m})
}

func (e runEmitter) EmitEnvironment(env *models.Environment) {
	e.dispatcher.Submit(e.ctx, Event{Type: EventEnvironment, Environment: env})
}
