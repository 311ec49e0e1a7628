// Package jobs runs CPU work such as asset decoding on a fixed set of worker
// goroutines.
package jobs

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/spaghettifunk/vkbase/engine/core"
)

var (
	ErrNoWorkers           = errors.New("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")
)

// Job is one unit of work. OnComplete or OnFailure runs on the worker after
// Run returns, depending on its result.
type Job struct {
	Name       string
	Run        func() error
	OnComplete func()
	OnFailure  func(err error)
}

type Pool struct {
	numWorkers int
	queue      chan Job
	wg         sync.WaitGroup
}

func NewPool(numWorkers int, channelSize int) (*Pool, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}
	p := &Pool{
		numWorkers: numWorkers,
		queue:      make(chan Job, channelSize),
	}
	p.start()
	return p, nil
}

func (p *Pool) start() {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.queue {
				p.execute(job)
			}
		}()
	}
}

func (p *Pool) execute(job Job) {
	err := job.Run()
	if err != nil {
		core.LogDebug("job %s failed: %s", job.Name, err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete()
	}
}

// Submit queues a job, blocking while the queue is full.
func (p *Pool) Submit(job Job) {
	p.queue <- job
}

// Shutdown stops accepting jobs and waits for the queued ones to finish.
func (p *Pool) Shutdown() {
	close(p.queue)
	p.wg.Wait()
}

// RunAll runs fns on at most runtime.NumCPU workers and waits for all of
// them. The error of the lowest failing index is returned.
func RunAll(name string, fns ...func() error) error {
	if len(fns) == 0 {
		return nil
	}
	pool, err := NewPool(min(len(fns), runtime.NumCPU()), len(fns))
	if err != nil {
		return err
	}
	errs := make([]error, len(fns))
	for i, fn := range fns {
		pool.Submit(Job{
			Name:      fmt.Sprintf("%s %d", name, i),
			Run:       fn,
			OnFailure: func(err error) { errs[i] = err },
		})
	}
	pool.Shutdown()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
