package main

import (
	"context"
	"sync"

	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/metrics"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type Job interface {
	Data() []byte
	Ack() error
	Nak() error
}

type natsJob struct {
	msg *nats.Msg
}

func (j natsJob) Data() []byte { return j.msg.Data }
func (j natsJob) Ack() error   { return j.msg.Ack() }
func (j natsJob) Nak() error   { return j.msg.Nak() }

type WorkerPool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	handler func(ctx context.Context, msg []byte) error
}

func NewWorkerPool(ctx context.Context, maxWorkers, queueSize int, handler func(ctx context.Context, msg []byte) error) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 2
	}
	if queueSize < 1 {
		queueSize = 100
	}

	poolCtx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		jobs:    make(chan Job, queueSize),
		ctx:     poolCtx,
		cancel:  cancel,
		handler: handler,
	}

	for i := 0; i < maxWorkers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

func (w *WorkerPool) worker() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			w.process(job)
		}
	}
}

func (w *WorkerPool) process(job Job) {
	if err := w.handler(w.ctx, job.Data()); err != nil {
		metrics.EmbedderJobs.WithLabelValues("failed").Inc()
		logger.Error("failed to handle message", zap.Error(err))
		if err := job.Nak(); err != nil {
			logger.Error("failed to nak message", zap.Error(err))
		}
		return
	}

	metrics.EmbedderJobs.WithLabelValues("succeeded").Inc()
	if err := job.Ack(); err != nil {
		logger.Error("failed to ack message", zap.Error(err))
	}
}

// Submit queues a job, blocking while the queue is full. It returns false
// once ctx or the pool is cancelled.
func (w *WorkerPool) Submit(ctx context.Context, job Job) bool {
	select {
	case w.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	case <-w.ctx.Done():
		return false
	}
}

// SubmitMsg adapts the pool to a queue subscription callback.
func (w *WorkerPool) SubmitMsg(ctx context.Context) func(m *nats.Msg) {
	return func(m *nats.Msg) {
		if !w.Submit(ctx, natsJob{msg: m}) {
			_ = m.Nak()
		}
	}
}

func (w *WorkerPool) Stop() {
	w.cancel()
	close(w.jobs)
}

func (w *WorkerPool) Wait() {
	w.wg.Wait()
}
