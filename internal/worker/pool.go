package worker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Job is a unit of completion work executed on a pooled worker.
type Job func()

// ErrBusy is returned when the completion queue is full; callers surface it
// as a throttled status.
var ErrBusy = errors.New("completion queue full")

type Config struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
}

const defaultIdle = 30 * time.Second

type workerMeta struct {
	ch       chan Job
	lastUsed time.Time
	enqueued bool
	retired  bool
}

// Pool bounds the number of concurrent provider calls process-wide. Workers
// grow on demand up to MaxWorkers and shrink back to MinWorkers after
// sitting idle past IdleTimeout.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	idle    []*workerMeta
	min     int
	max     int
	running int
	expiry  time.Duration

	queue  chan Job
	stopCh chan struct{}
}

func NewPool(cfg Config) *Pool {
	if cfg.MaxWorkers < cfg.MinWorkers {
		cfg.MaxWorkers = cfg.MinWorkers
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdle
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	p := &Pool{
		min:    cfg.MinWorkers,
		max:    cfg.MaxWorkers,
		expiry: cfg.IdleTimeout,
		queue:  make(chan Job, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	p.mu.Lock()
	for i := 0; i < p.min; i++ {
		meta := p.spawnLocked()
		meta.enqueued = true
		meta.lastUsed = time.Now()
		p.idle = append(p.idle, meta)
	}
	p.mu.Unlock()
	go p.dispatch()
	go p.purgeStale()
	return p
}

// Do submits a job and waits for it to finish. A full queue returns ErrBusy
// immediately. When the context expires before the job completes, the
// context error is returned; the job itself still runs and is expected to
// honor the same context.
func (p *Pool) Do(ctx context.Context, job Job) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		job()
	}
	select {
	case p.queue <- wrapped:
	default:
		return ErrBusy
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the dispatcher and retires all workers. Queued jobs are
// abandoned.
func (p *Pool) Close() {
	close(p.stopCh)
	p.mu.Lock()
	for _, meta := range p.idle {
		if !meta.retired {
			meta.retired = true
			close(meta.ch)
		}
	}
	p.idle = nil
	p.mu.Unlock()
}

func (p *Pool) dispatch() {
	for {
		select {
		case <-p.stopCh:
			return
		case job := <-p.queue:
			meta := p.acquire()
			if meta == nil {
				return
			}
			meta.ch <- job
		}
	}
}

// acquire pops an idle worker, spawning a new one when below the cap, and
// blocks while the pool is saturated.
func (p *Pool) acquire() *workerMeta {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		select {
		case <-p.stopCh:
			return nil
		default:
		}
		if meta := p.popIdleLocked(); meta != nil {
			return meta
		}
		if p.running < p.max {
			return p.spawnLocked()
		}
		p.cond.Wait()
	}
}

func (p *Pool) popIdleLocked() *workerMeta {
	for len(p.idle) > 0 {
		meta := p.idle[0]
		p.idle = p.idle[1:]
		if meta.retired {
			continue
		}
		meta.enqueued = false
		return meta
	}
	return nil
}

func (p *Pool) spawnLocked() *workerMeta {
	meta := &workerMeta{ch: make(chan Job, 1)}
	p.running++
	go p.runWorker(meta)
	return meta
}

func (p *Pool) runWorker(meta *workerMeta) {
	for job := range meta.ch {
		job()
		p.release(meta)
	}
	p.mu.Lock()
	if p.running > 0 {
		p.running--
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *Pool) release(meta *workerMeta) {
	p.mu.Lock()
	if meta.retired || meta.enqueued {
		p.mu.Unlock()
		return
	}
	meta.enqueued = true
	meta.lastUsed = time.Now()
	p.idle = append(p.idle, meta)
	p.mu.Unlock()
	p.cond.Signal()
}

func (p *Pool) purgeStale() {
	ticker := time.NewTicker(p.expiry)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.shutdownExpired()
		}
	}
}

// shutdownExpired retires idle workers past the expiry while keeping at
// least min running.
func (p *Pool) shutdownExpired() {
	now := time.Now()
	var stale []*workerMeta

	p.mu.Lock()
	if len(p.idle) == 0 || p.running <= p.min {
		p.mu.Unlock()
		return
	}
	remaining := p.idle[:0]
	for _, meta := range p.idle {
		if meta.retired {
			continue
		}
		if now.Sub(meta.lastUsed) >= p.expiry && p.running-len(stale) > p.min {
			meta.retired = true
			meta.enqueued = false
			stale = append(stale, meta)
			continue
		}
		remaining = append(remaining, meta)
	}
	p.idle = remaining
	p.mu.Unlock()

	for _, meta := range stale {
		close(meta.ch)
	}
}

// Running reports the current worker count.
func (p *Pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
