// Package worker runs engine requests off the caller's goroutine.
//
// A Worker owns one FIFO queue and processes one request at a time, so the
// replies for a single consumer arrive in submission order. Started jobs are
// never cancelled; callers drop stale replies with Latest.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/errors"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/metrics"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/ports"

	"github.com/gammazero/deque"
)

// Worker is a dedicated request queue bound to one consumer.
type Worker struct {
	id      string
	engine  ports.EnginePort
	logger  *internal.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	queue  *deque.Deque[contracts.Envelope]
	seq    uint64
	closed bool

	wake    chan struct{}
	results chan contracts.Reply
}

// New creates a worker. buffer is the capacity of the reply channel; a full
// channel holds back the next job until the consumer reads.
func New(id string, engine ports.EnginePort, buffer int, logger *internal.Logger, m *metrics.Metrics) *Worker {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Worker{
		id:      id,
		engine:  engine,
		logger:  logger.With("Worker"),
		metrics: m,
		queue:   deque.New[contracts.Envelope](0, 16),
		wake:    make(chan struct{}, 1),
		results: make(chan contracts.Reply, max(buffer, 0)),
	}
}

// ID returns the worker's identifier
func (w *Worker) ID() string {
	return w.id
}

// Submit queues env and returns its generation. A zero Generation is replaced
// with the next value of the worker's counter; an explicit one advances the
// counter so later automatic generations stay monotonic.
func (w *Worker) Submit(env contracts.Envelope) (uint64, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return 0, errors.QueueClosed(fmt.Errorf("%w: worker %s", core.ErrQueueClosed, w.id))
	}
	if env.Generation == 0 {
		w.seq++
		env.Generation = w.seq
	} else if env.Generation > w.seq {
		w.seq = env.Generation
	}
	w.queue.PushBack(env)
	depth := w.queue.Len()
	w.mu.Unlock()

	w.metrics.SetQueueDepth(w.id, depth)
	w.signal()
	return env.Generation, nil
}

// SubmitReduce queues a reduce request under a fresh generation.
func (w *Worker) SubmitReduce(req contracts.ReduceRequest) (uint64, error) {
	return w.Submit(contracts.Envelope{Kind: contracts.KindReduce, Reduce: &req})
}

// SubmitReconstruct queues a reconstruct request under a fresh generation.
func (w *Worker) SubmitReconstruct(req contracts.ReconstructRequest) (uint64, error) {
	return w.Submit(contracts.Envelope{Kind: contracts.KindReconstruct, Reconstruct: &req})
}

// Results delivers replies in submission order. It is closed when Run returns.
func (w *Worker) Results() <-chan contracts.Reply {
	return w.results
}

// Pending returns the number of queued requests not yet started.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queue.Len()
}

// Close stops accepting requests. Requests already queued still run.
func (w *Worker) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.signal()
}

// Run processes the queue until Close has been called and the queue is empty,
// or until ctx is done. Cancelling ctx abandons queued requests but never
// interrupts the one being computed.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.results)
	defer w.metrics.ForgetWorker(w.id)

	w.logger.Debug("worker %s started", w.id)
	for {
		if ctx.Err() != nil {
			w.logger.Debug("worker %s stopped with %d queued", w.id, w.Pending())
			return nil
		}
		env, ok, done := w.next()
		if done {
			w.logger.Debug("worker %s drained", w.id)
			return nil
		}
		if !ok {
			select {
			case <-w.wake:
				continue
			case <-ctx.Done():
				w.logger.Debug("worker %s stopped with %d queued", w.id, w.Pending())
				return nil
			}
		}

		start := time.Now()
		reply := Execute(w.engine, env)
		elapsed := time.Since(start)
		reply.ElapsedMs = float64(elapsed.Microseconds()) / 1000
		w.metrics.ObserveReply(env, reply, elapsed)
		w.logger.Trace("worker %s: generation %d (%s) took %v", w.id, reply.Generation, reply.Kind, elapsed)

		select {
		case w.results <- reply:
		case <-ctx.Done():
			w.logger.Debug("worker %s stopped before delivering generation %d", w.id, reply.Generation)
			return nil
		}
	}
}

// next pops the oldest envelope. done reports a closed, empty queue.
func (w *Worker) next() (env contracts.Envelope, ok bool, done bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.queue.Len() == 0 {
		return env, false, w.closed
	}
	env = w.queue.PopFront()
	w.metrics.SetQueueDepth(w.id, w.queue.Len())
	return env, true, false
}

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Execute answers one envelope synchronously. An envelope whose payload does
// not match its kind, or whose request makes the engine panic, yields a reply
// carrying an error message.
func Execute(engine ports.EnginePort, env contracts.Envelope) (reply contracts.Reply) {
	reply = contracts.Reply{Generation: env.Generation, Kind: env.Kind}
	defer func() {
		if r := recover(); r != nil {
			reply = contracts.Reply{
				Generation: env.Generation,
				Kind:       env.Kind,
				Error:      errors.InternalError(fmt.Sprintf("%s request failed: %v", env.Kind, r)).Error(),
			}
		}
	}()

	switch {
	case env.Kind == contracts.KindReduce && env.Reduce != nil:
		resp := engine.Reduce(*env.Reduce)
		reply.Reduce = &resp
	case env.Kind == contracts.KindReconstruct && env.Reconstruct != nil:
		resp := engine.Reconstruct(*env.Reconstruct)
		reply.Reconstruct = &resp
	default:
		reply.Error = errors.InvalidInput(fmt.Sprintf("envelope of kind %q carries no matching request", env.Kind)).Error()
	}
	return reply
}
