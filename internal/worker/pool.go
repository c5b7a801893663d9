package worker

import (
	"context"
	"sync"
)

// Job is a unit of work run by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a job
type Result interface {
	GetError() error
}

// Pool bounds how many jobs run at once. Results are collected in memory,
// so a submitter never waits on a reader.
type Pool struct {
	workers int
	slots   chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	results []Result
}

// NewPool creates a pool running at most workers jobs at once (at least
// one). Cancelling ctx stops new jobs from starting.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers: workers,
		slots:   make(chan struct{}, workers),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit blocks until a slot is free and starts job. It returns false
// without running the job once the pool is closed or its context is done.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.slots <- struct{}{}:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer func() { <-p.slots }()

		result := job.Execute(p.ctx)
		if result == nil {
			return
		}
		p.mu.Lock()
		p.results = append(p.results, result)
		p.mu.Unlock()
	}()
	return true
}

// Wait closes the pool, waits for running jobs and returns their results
// in completion order
func (p *Pool) Wait() []Result {
	p.close()
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results
}

// Shutdown cancels running jobs and waits for them to return
func (p *Pool) Shutdown() {
	p.close()
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
