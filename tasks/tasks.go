// Package tasks runs deferred work on a fixed pool of workers, with an
// optional cron schedule feeding the same queue.
package tasks

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pollwise/pollwise/log"
)

type task struct {
	name string
	run  func(context.Context) error
}

type Dispatcher struct {
	queue  chan task
	cron   *cron.Cron
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(workers, queueSize int) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		queue:  make(chan task, queueSize),
		cron:   cron.New(),
		group:  &errgroup.Group{},
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		d.group.Go(d.work)
	}
	d.cron.Start()
	return d
}

func (d *Dispatcher) work() error {
	for t := range d.queue {
		if err := t.run(d.ctx); err != nil {
			log.Errorf("tasks.failed %s: %s", t.name, err)
		}
	}
	return nil
}

// Enqueue hands run off to the worker pool. Fire and forget: failures
// are logged under name, and when the queue is full or the dispatcher
// is shutting down the task is dropped rather than blocking the caller.
func (d *Dispatcher) Enqueue(name string, run func(context.Context) error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		log.Warnf("tasks.shutdown: dropped %s", name)
		return
	}
	select {
	case d.queue <- task{name, run}:
	default:
		log.Warnf("tasks.queue_full: dropped %s", name)
	}
}

// Schedule enqueues run on every tick of a cron expression (robfig
// syntax, "@every 1m" included).
func (d *Dispatcher) Schedule(spec, name string, run func(context.Context) error) error {
	_, err := d.cron.AddFunc(spec, func() {
		d.Enqueue(name, run)
	})
	return err
}

// Shutdown stops the schedule and drains queued tasks; later Enqueue
// calls are dropped with a warning. When ctx expires first, in-flight
// tasks see their context canceled and the remainder of the queue is
// abandoned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	<-d.cron.Stop().Done()

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
