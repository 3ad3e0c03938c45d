package superjwt

import (
	"context"
	"sync"
	"sync/atomic"
)

// AuditDrops counts audit events that never reached the sink, by cause.
type AuditDrops struct {
	Full     uint64 // buffer full while DropIfFull is set
	Canceled uint64 // caller context ended while waiting for buffer room
	Closed   uint64 // emitted after Close
}

// Total is the sum of every drop cause.
func (d AuditDrops) Total() uint64 {
	return d.Full + d.Canceled + d.Closed
}

// auditDispatcher moves audit events off the Authorize/Verify path. Senders hold
// mu shared for the whole enqueue and Close takes it exclusively before closing
// the queue, so every event is either delivered or counted in AuditDrops.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	mu      sync.RWMutex
	closed  bool
	queue   chan AuditEvent
	flushed chan struct{}

	full     atomic.Uint64
	canceled atomic.Uint64
	late     atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, size),
		flushed:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.flushed)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. With dropIfFull a full queue drops it; otherwise Emit waits
// for room until ctx ends.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.late.Add(1)
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.full.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.canceled.Add(1)
	}
}

// Close stops accepting events and returns once every queued event reached the sink.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.flushed
}

func (d *auditDispatcher) Drops() AuditDrops {
	if d == nil {
		return AuditDrops{}
	}
	return AuditDrops{
		Full:     d.full.Load(),
		Canceled: d.canceled.Load(),
		Closed:   d.late.Load(),
	}
}

func (d *auditDispatcher) Dropped() uint64 {
	return d.Drops().Total()
}
