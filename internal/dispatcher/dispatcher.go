// Package dispatcher routes host commands such as :SAMPLE: or :POSE: to
// registered handlers, optionally through a bounded queue drained by a
// single worker per command.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/geoanchor/internal/dispatcher"

// Queued is the result of a buffered dispatch that was accepted.
const Queued = "queued"

var (
	// ErrClosed is returned by a buffered Dispatch after Close.
	ErrClosed = errors.New("dispatcher closed")
	// ErrUnknownCommand is returned when no handler is registered.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQueueFull is returned by a non-blocking buffered handler.
	ErrQueueFull = errors.New("queue full")
)

// Event represents an incoming command from the host.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(o *options) { o.bufferSize = size }
}

// Blocking makes a buffered handler wait for room instead of dropping.
func Blocking() Option {
	return func(o *options) { o.blocking = true }
}

// Logged adds debug logging around the handler.
func Logged() Option {
	return func(o *options) { o.logged = true }
}

type instruments struct {
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
	wait      metric.Float64Histogram
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger Logger
	inst   instruments

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	buffers  map[string]chan Event
	closed   bool
	wg       sync.WaitGroup
}

// New creates a Dispatcher. Metrics go to the global OTel meter, which is
// a no-op until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}
	if err := d.instrument(otel.Meter(instrumentationName)); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) instrument(m metric.Meter) error {
	var err error
	if d.inst.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Events waiting in a command queue"),
	); err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}
	if _, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for cmd, buf := range d.buffers {
			o.ObserveInt64(d.inst.queueSize, int64(len(buf)),
				metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, d.inst.queueSize); err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}
	if d.inst.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Buffered events handled"),
	); err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}
	if d.inst.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Buffered events whose handler returned an error"),
	); err != nil {
		return fmt.Errorf("creating failed counter: %w", err)
	}
	if d.inst.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Events rejected by a full queue"),
	); err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}
	if d.inst.wait, err = m.Float64Histogram(
		"dispatcher.queue.wait",
		metric.WithDescription("Time a buffered event spent queued before its handler ran"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("creating queue wait histogram: %w", err)
	}
	return nil
}

// Register adds a handler for the given command. Registering the same
// command twice replaces the earlier handler.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	handler := h
	if o.bufferSize > 0 {
		handler = d.withBuffer(command, o.bufferSize, o.blocking, handler)
	}
	if o.logged {
		handler = d.withLogging(command, handler)
	}

	d.mu.Lock()
	d.handlers[command] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler. A zero Timestamp is
// set to the current time.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the registered commands in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	cmds := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		cmds = append(cmds, cmd)
	}
	d.mu.RUnlock()
	sort.Strings(cmds)
	return cmds
}

// Pending returns the number of events waiting across all queues.
func (d *Dispatcher) Pending() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, buf := range d.buffers {
		n += len(buf)
	}
	return n
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("command", command))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx := context.Background()
		for e := range buffer {
			d.inst.wait.Record(ctx, time.Since(e.Timestamp).Seconds(), attrs)
			if _, err := h(e); err != nil {
				d.inst.failed.Add(ctx, 1, attrs)
				d.logger.Error("buffered event failed", "command", command, "error", err)
			}
			d.inst.processed.Add(ctx, 1, attrs)
		}
	}()

	// The read lock is held across the send so Close cannot close the
	// channel under a pending sender.
	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, ErrClosed
		}
		if blocking {
			buffer <- e
			return Queued, nil
		}
		select {
		case buffer <- e:
			return Queued, nil
		default:
			d.inst.dropped.Add(context.Background(), 1, attrs)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

// Close stops accepting buffered events and waits until every queued
// event has been handled. Unbuffered handlers keep working.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(e)
		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		return result, nil
	}
}
