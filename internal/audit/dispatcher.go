package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking; overflow is counted, not queued.
	DropIfFull bool
}

// Dispatcher relays events to a Sink from a single goroutine so that
// request paths never wait on sink I/O. A nil *Dispatcher is valid and
// discards everything.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	log       *zap.Logger
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink, log *zap.Logger) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		log:  log,
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.ch:
			d.deliver(ev)
		case <-d.done:
			for {
				select {
				case ev := <-d.ch:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("audit_sink_panic", zap.String("event_type", ev.Type), zap.Any("panic", r))
		}
	}()
	d.sink.Emit(context.Background(), ev)
}

func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- ev:
		case <-d.done:
		default:
			if d.dropped.Add(1) == 1 {
				d.log.Warn("audit_buffer_full", zap.Int("buffer", d.cfg.BufferSize))
			}
		}
		return
	}

	select {
	case d.ch <- ev:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close stops accepting events, drains the buffer into the sink and waits
// for the relay goroutine. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
