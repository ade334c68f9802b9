package audit

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering. A disabled config yields a nil
// Dispatcher, which accepts and discards events.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// Critical event types are never dropped for a full buffer, even with
	// DropIfFull. Emit waits for room or for its context instead.
	Critical []string
}

// Dispatcher forwards events to a sink on one goroutine. Drops are counted
// per event type so a lost status change is distinguishable from a lost
// login record.
type Dispatcher struct {
	cfg      Config
	sink     Sink
	critical map[string]struct{}
	ch       chan Event

	done    chan struct{} // closed by Shutdown
	abort   chan struct{} // closed when the Shutdown deadline passes
	stopped chan struct{} // closed when run returns

	total     atomic.Uint64
	mu        sync.Mutex
	dropped   map[string]uint64
	closed    atomic.Bool
	closeOnce sync.Once
	abortOnce sync.Once
}

// NewDispatcher starts the delivery goroutine. Shutdown or Close stops it.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		sink:     sink,
		critical: make(map[string]struct{}, len(cfg.Critical)),
		ch:       make(chan Event, cfg.BufferSize),
		done:     make(chan struct{}),
		abort:    make(chan struct{}),
		stopped:  make(chan struct{}),
		dropped:  make(map[string]uint64),
	}
	for _, name := range cfg.Critical {
		d.critical[name] = struct{}{}
	}

	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer close(d.stopped)

	for {
		// Shutdown takes priority so a deadline is honored between events.
		select {
		case <-d.done:
			d.drain()
			return
		default:
		}

		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

// drain delivers buffered events until the buffer is empty or Shutdown gives
// up, in which case the rest are counted as dropped.
func (d *Dispatcher) drain() {
	for {
		select {
		case <-d.abort:
			for {
				select {
				case event := <-d.ch:
					d.drop(event.EventType)
				default:
					return
				}
			}
		default:
		}

		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues event. With DropIfFull a full buffer drops and counts a
// non-critical event. Otherwise Emit waits for room, and an event abandoned
// because ctx ended or the dispatcher shut down is counted too.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull && !d.IsCritical(event.EventType) {
		select {
		case d.ch <- event:
		default:
			d.drop(event.EventType)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.drop(event.EventType)
	case <-d.done:
		d.drop(event.EventType)
	}
}

// IsCritical reports whether eventType is exempt from DropIfFull.
func (d *Dispatcher) IsCritical(eventType string) bool {
	if d == nil {
		return false
	}
	_, ok := d.critical[eventType]
	return ok
}

func (d *Dispatcher) drop(eventType string) {
	d.total.Add(1)
	d.mu.Lock()
	d.dropped[eventType]++
	d.mu.Unlock()
}

// Shutdown stops accepting events and delivers what is buffered. If ctx ends
// first, delivery stops after the event in flight, the remainder is counted
// as dropped, and ctx.Err() is returned. Later Emit calls are ignored.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
	})

	select {
	case <-d.stopped:
		return nil
	case <-ctx.Done():
		d.abortOnce.Do(func() { close(d.abort) })
		<-d.stopped
		return ctx.Err()
	}
}

// Close is Shutdown without a deadline.
func (d *Dispatcher) Close() {
	_ = d.Shutdown(context.Background())
}

// Dropped is the number of events discarded so far.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.total.Load()
}

// DroppedByType returns a copy of the drop counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	if d == nil {
		return map[string]uint64{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.dropped)
}
