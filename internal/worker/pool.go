package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/config"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/errors"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/metrics"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/ports"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool runs a fixed set of shared workers plus any number of dedicated ones.
//
// Do routes each consumer to the same shared worker, so one consumer's
// requests complete in order while different consumers proceed in parallel.
// Attach gives a long-lived consumer (a websocket connection) its own worker.
type Pool struct {
	engine  ports.EnginePort
	cfg     config.WorkerConfig
	logger  *internal.Logger
	metrics *metrics.Metrics

	inflight *semaphore.Weighted
	group    *errgroup.Group
	ctx      context.Context
	cancel   context.CancelFunc

	shards []*shard

	mu       sync.Mutex
	attached map[core.ConsumerID]*Worker
	closed   bool
}

// shard is a shared worker and the callers waiting on it, keyed by generation.
type shard struct {
	worker  *Worker
	mu      sync.Mutex
	waiters map[uint64]chan contracts.Reply
}

// NewPool starts cfg.Count shared workers. They stop when ctx is done or
// Shutdown is called.
func NewPool(ctx context.Context, engine ports.EnginePort, cfg config.WorkerConfig, logger *internal.Logger, m *metrics.Metrics) *Pool {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)

	p := &Pool{
		engine:   engine,
		cfg:      cfg,
		logger:   logger.With("Pool"),
		metrics:  m,
		inflight: semaphore.NewWeighted(max(cfg.MaxInflight, 1)),
		group:    group,
		ctx:      gctx,
		cancel:   cancel,
		attached: make(map[core.ConsumerID]*Worker),
	}

	for i := 0; i < max(cfg.Count, 1); i++ {
		s := &shard{
			worker:  New(fmt.Sprintf("shared-%d", i), engine, cfg.Buffer, logger, m),
			waiters: make(map[uint64]chan contracts.Reply),
		}
		p.shards = append(p.shards, s)
		group.Go(func() error { return s.worker.Run(gctx) })
		group.Go(func() error { s.dispatch(); return nil })
	}

	p.logger.Info("started %d shared workers (max in flight %d)", len(p.shards), cfg.MaxInflight)
	return p
}

// Do runs env on the consumer's shared worker and waits for the reply. The
// reply carries env's original generation. If ctx ends first the request
// still runs to completion but its reply is discarded. When no in-flight slot
// frees up within cfg.AcquireTimeout, Do fails with a BUSY error.
func (p *Pool) Do(ctx context.Context, consumer core.ConsumerID, env contracts.Envelope) (contracts.Reply, error) {
	if err := p.acquire(ctx); err != nil {
		return contracts.Reply{}, errors.Busy(err)
	}
	defer p.inflight.Release(1)

	s := p.shards[p.shardIndex(consumer)]
	want := env.Generation
	env.Generation = 0

	wait := make(chan contracts.Reply, 1)
	s.mu.Lock()
	gen, err := s.worker.Submit(env)
	if err != nil {
		s.mu.Unlock()
		return contracts.Reply{}, err
	}
	s.waiters[gen] = wait
	s.mu.Unlock()

	select {
	case reply, ok := <-wait:
		if !ok {
			return contracts.Reply{}, errors.QueueClosed(core.ErrQueueClosed)
		}
		reply.Generation = want
		return reply, nil
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.waiters, gen)
		s.mu.Unlock()
		return contracts.Reply{}, ctx.Err()
	}
}

func (p *Pool) acquire(ctx context.Context) error {
	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}
	return p.inflight.Acquire(ctx, 1)
}

// dispatch hands each reply to its waiter until the worker's channel closes.
func (s *shard) dispatch() {
	for reply := range s.worker.Results() {
		s.mu.Lock()
		wait, ok := s.waiters[reply.Generation]
		delete(s.waiters, reply.Generation)
		s.mu.Unlock()
		if ok {
			wait <- reply
		}
	}

	s.mu.Lock()
	for gen, wait := range s.waiters {
		close(wait)
		delete(s.waiters, gen)
	}
	s.mu.Unlock()
}

func (p *Pool) shardIndex(consumer core.ConsumerID) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(consumer))
	return int(h.Sum32() % uint32(len(p.shards)))
}

// Attach creates a dedicated worker for consumer. Attaching an already
// attached consumer returns its existing worker.
func (p *Pool) Attach(consumer core.ConsumerID) (*Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.QueueClosed(core.ErrQueueClosed)
	}
	if w, ok := p.attached[consumer]; ok {
		return w, nil
	}

	w := New(consumer.String(), p.engine, p.cfg.Buffer, p.logger, p.metrics)
	p.attached[consumer] = w
	p.group.Go(func() error { return w.Run(p.ctx) })
	p.metrics.WorkerAttached(1)

	p.logger.Debug("attached worker for consumer %s (%d attached)", consumer, len(p.attached))
	return w, nil
}

// Detach closes the consumer's dedicated worker. Queued requests still run
// and their replies remain readable until the results channel closes.
func (p *Pool) Detach(consumer core.ConsumerID) error {
	p.mu.Lock()
	w, ok := p.attached[consumer]
	delete(p.attached, consumer)
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownWorker, consumer)
	}
	w.Close()
	p.metrics.WorkerAttached(-1)
	p.logger.Debug("detached worker for consumer %s", consumer)
	return nil
}

// Attached returns the number of dedicated workers.
func (p *Pool) Attached() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.attached)
}

// Shutdown stops accepting work and waits for every worker to drain. When
// ctx ends first the remaining queues are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	for consumer, w := range p.attached {
		w.Close()
		delete(p.attached, consumer)
		p.metrics.WorkerAttached(-1)
	}
	p.mu.Unlock()

	for _, s := range p.shards {
		s.worker.Close()
	}

	done := make(chan error, 1)
	go func() { done <- p.group.Wait() }()

	select {
	case err := <-done:
		p.cancel()
		p.logger.Info("all workers stopped")
		return err
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("shutdown timed out, abandoning queued requests")
		<-done
		return ctx.Err()
	}
}
