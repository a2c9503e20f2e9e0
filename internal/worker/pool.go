package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/avashisht/veridoc/internal/model"
)

// AnalyzeFunc runs one forensic analysis. It must always return a verdict.
type AnalyzeFunc func(ctx context.Context, doc model.Document) model.ManipulationVerdict

type job struct {
	ctx context.Context
	doc model.Document
	out chan model.ManipulationVerdict
}

// ForensicsPool runs CPU-bound forensic analyses on a fixed set of workers,
// keeping them off the request-serving goroutines. Requests block on their
// own job only; the pool itself never becomes per-request state.
type ForensicsPool struct {
	analyze AnalyzeFunc
	jobs    chan job
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewForensicsPool creates and starts a pool with the given worker count.
func NewForensicsPool(workers int, analyze AnalyzeFunc) *ForensicsPool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &ForensicsPool{
		analyze: analyze,
		jobs:    make(chan job, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *ForensicsPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			if j.ctx.Err() != nil {
				continue // requester already gone
			}
			verdict := p.analyze(j.ctx, j.doc)
			select {
			case j.out <- verdict:
			case <-j.ctx.Done():
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Analyze schedules the document and blocks until its verdict is ready, the
// caller's context ends, or the pool shuts down.
func (p *ForensicsPool) Analyze(ctx context.Context, doc model.Document) (model.ManipulationVerdict, error) {
	out := make(chan model.ManipulationVerdict, 1)
	select {
	case <-ctx.Done():
		return model.ManipulationVerdict{}, ctx.Err()
	case <-p.ctx.Done():
		return model.ManipulationVerdict{}, fmt.Errorf("forensics pool shut down")
	case p.jobs <- job{ctx: ctx, doc: doc, out: out}:
	}

	select {
	case verdict := <-out:
		return verdict, nil
	case <-ctx.Done():
		return model.ManipulationVerdict{}, ctx.Err()
	case <-p.ctx.Done():
		return model.ManipulationVerdict{}, fmt.Errorf("forensics pool shut down")
	}
}

// Shutdown stops the workers. In-flight analyses are abandoned.
func (p *ForensicsPool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
