// Package worker runs a fixed pool of goroutines that drain a bounded
// job queue through the pipeline and publish their outcomes on a
// bounded result queue.
package worker

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iperka/paporg-sub001/internal/model"
	"github.com/iperka/paporg-sub001/internal/pipeline"
	"github.com/iperka/paporg-sub001/internal/tracker"
)

// ErrPoolShutdown is returned by Submit once Shutdown has been called.
var ErrPoolShutdown = errors.New("worker pool is shutting down")

// recvTimeout bounds how long a worker blocks waiting for a job
// before re-checking the shutdown flag, so Shutdown takes effect
// promptly even under an idle queue.
const recvTimeout = 100 * time.Millisecond

// Result is the outcome of running one Job through the pipeline.
type Result struct {
	Job           model.Job
	Success       bool
	OutputPath    string
	ArchivePath   string
	Symlinks      []string
	Category      string
	ExtractedText string
	Warnings      []pipeline.Warning
	Err           error
}

// Pool runs workerCount goroutines, each pulling jobs off a shared
// channel and running them through the same Pipeline instance.
// Progress is optionally broadcast per job via a JobProgressBroadcaster.
type Pool struct {
	jobs     chan model.Job
	results  chan Result
	shutdown atomic.Bool
	wg       sync.WaitGroup

	pipeline *pipeline.Pipeline
	progress *tracker.JobProgressBroadcaster
}

// New starts a Pool of workerCount goroutines backed by p. progress
// may be nil, in which case jobs run with a NoopReporter and no
// progress events are published.
func New(p *pipeline.Pipeline, workerCount int, progress *tracker.JobProgressBroadcaster) *Pool {
	if workerCount <= 0 {
		panic("worker: workerCount must be > 0")
	}

	pool := &Pool{
		jobs:     make(chan model.Job, workerCount*2),
		results:  make(chan Result, workerCount*2),
		pipeline: p,
		progress: progress,
	}

	pool.wg.Add(workerCount)
	for id := 0; id < workerCount; id++ {
		go pool.run(id)
	}
	return pool
}

// Submit enqueues job for processing. It blocks if the queue is full
// and fails once the pool has begun shutting down.
func (p *Pool) Submit(job model.Job) error {
	if p.shutdown.Load() {
		return ErrPoolShutdown
	}
	p.jobs <- job
	return nil
}

// TryRecvResult returns the next available result without blocking.
func (p *Pool) TryRecvResult() (Result, bool) {
	select {
	case r := <-p.results:
		return r, true
	default:
		return Result{}, false
	}
}

// RecvResult blocks until a result is available or the pool has fully
// drained and closed its result channel.
func (p *Pool) RecvResult() (Result, bool) {
	r, ok := <-p.results
	return r, ok
}

// Shutdown signals every worker to stop picking up new jobs. Workers
// mid-job finish that job before exiting.
func (p *Pool) Shutdown() {
	p.shutdown.Store(true)
}

// IsShutdown reports whether Shutdown has been called.
func (p *Pool) IsShutdown() bool {
	return p.shutdown.Load()
}

// Wait closes the job queue, waits for every worker to exit, then
// closes the result queue so callers range-ing over RecvResult/channel
// observe a clean end.
func (p *Pool) Wait() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
}

// run is a single worker's loop: pull a job, run it through the
// pipeline, publish the result, repeat until the queue closes or
// Shutdown is observed.
func (p *Pool) run(id int) {
	defer p.wg.Done()

	for {
		if p.shutdown.Load() {
			return
		}

		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.results <- p.process(job)
		case <-time.After(recvTimeout):
			continue
		}
	}
}

// process runs one job through the pipeline, building a per-job
// progress reporter when a broadcaster is configured.
func (p *Pool) process(job model.Job) Result {
	var reporter pipeline.Reporter = pipeline.NoopReporter{}
	var broadcastReporter *pipeline.BroadcastReporter

	if p.progress != nil {
		tr := tracker.NewJobProgressTracker(job.ID, job.OriginalFilename, job.CurrentPath, p.progress, time.Now).
			WithSource(job.Source, job.MIMEType)
		broadcastReporter = pipeline.NewBroadcastReporter(tr)
		reporter = broadcastReporter
	}

	reporter.Phase(tracker.PhaseQueued, "job queued for processing")

	ctx, err := p.pipeline.Run(job, reporter)

	result := Result{Job: job, Success: err == nil, Err: err}
	if ctx != nil {
		result.OutputPath = ctx.OutputPath
		result.ArchivePath = ctx.ArchivePath
		result.Symlinks = ctx.SymlinkPaths
		result.Warnings = ctx.Warnings
		if ctx.Categorized != nil {
			result.Category = ctx.Categorized.Category
		}
	}
	if broadcastReporter != nil {
		result.ExtractedText = broadcastReporter.TakeOCRText()
	}
	return result
}
