package connection

import (
	"log/slog"
	"sync"

	"github.com/rickgao/wsconn/internal/buffer"
)

// dispatcher runs user callbacks one at a time, in the order they were
// posted, on a goroutine that never holds the manager lock. A drain
// goroutine is started on demand and exits once the queue is empty.
type dispatcher struct {
	queue  *buffer.Queue[func()]
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

func newDispatcher(logger *slog.Logger) *dispatcher {
	return &dispatcher{
		queue:  buffer.NewQueue[func()](0),
		logger: logger,
	}
}

// post queues fn. Safe to call with the manager lock held.
func (d *dispatcher) post(fn func()) {
	d.queue.Push(fn)

	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	go d.drain()
}

func (d *dispatcher) drain() {
	for {
		fn, ok := d.queue.Pop()
		if !ok {
			d.mu.Lock()
			if d.queue.Len() == 0 {
				d.running = false
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			continue
		}
		d.run(fn)
	}
}

func (d *dispatcher) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("callback panicked", "panic", r)
		}
	}()
	fn()
}
