package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/nocturnecity/image-formatter/pkg"
)

type job struct {
	ctx context.Context
	h   *ExportHandler
	c   chan jobResult
}

type jobResult struct {
	result map[string]pkg.ResultSize
	err    error
}

func NewPool(logger *StdLog, maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{
		logger:  logger,
		wq:      make(chan chan job, maxWorkers),
		workers: maxWorkers,
		qq:      make(chan struct{}),
		wg:      &sync.WaitGroup{},
	}
}

type Pool struct {
	logger  *StdLog
	wq      chan chan job
	qq      chan struct{}
	workers int
	wg      *sync.WaitGroup
	once    sync.Once
}

func (d *Pool) Run() {
	d.logger.Info("Starting worker pool with %d workers", d.workers)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		worker := newWorker(d.logger, d.wq, d.qq, d.wg)
		worker.start()
	}
}

// Dispatch waits for a free worker and hands it the job. It returns the job result, or
// the context error if ctx ends first.
func (d *Pool) Dispatch(ctx context.Context, h *ExportHandler) (map[string]pkg.ResultSize, error) {
	queueLength.Inc()
	defer queueLength.Dec()
	var jobChannel chan job
	select {
	case jobChannel = <-d.wq:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.qq:
		return nil, fmt.Errorf("worker pool is shut down")
	}
	c := make(chan jobResult, 1)
	select {
	case jobChannel <- job{ctx: ctx, h: h, c: c}:
	case <-d.qq:
		return nil, fmt.Errorf("worker pool is shut down")
	}
	res := <-c
	return res.result, res.err
}

func (d *Pool) ShutDown() {
	d.once.Do(func() { close(d.qq) })
	d.wg.Wait()
}

func newWorker(logger *StdLog, workerQueue chan chan job, quitChan chan struct{}, wg *sync.WaitGroup) *Worker {
	return &Worker{
		logger: logger,
		jq:     make(chan job),
		wq:     workerQueue,
		qc:     quitChan,
		wg:     wg,
	}
}

type Worker struct {
	logger *StdLog
	jq     chan job      // internal worker queue
	wq     chan chan job // pool workers queue
	qc     chan struct{}
	wg     *sync.WaitGroup
}

func (w *Worker) start() {
	go func() {
		w.logger.Debug("Worker spawned")
		for {
			w.wq <- w.jq
			select {
			case rq := <-w.jq:
				w.logger.Debug("Worker processing export %v", rq.h.Request)
				rq.c <- w.process(rq)
			case <-w.qc:
				w.logger.Debug("Worker quit channel triggered")
				w.wg.Done()
				return
			}
		}
	}()
}

func (w *Worker) process(rq job) (res jobResult) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panic recover: %v", r)
			res = jobResult{err: fmt.Errorf("export panicked: %v", r)}
		}
	}()
	result, err := rq.h.ProcessRequest(rq.ctx)
	return jobResult{result, err}
}
