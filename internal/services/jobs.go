package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// JobFunc is a long-running admin job such as a seed.
type JobFunc func(ctx context.Context) (interface{}, error)

// JobStatus describes the running or last finished job.
type JobStatus struct {
	Running    bool        `json:"running"`
	Job        string      `json:"job,omitempty"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// JobRunner runs at most one job at a time in the background. Jobs are
// cancelled when the base context is.
type JobRunner struct {
	ctx    context.Context
	mu     sync.Mutex
	status JobStatus
	done   chan struct{}
}

func NewJobRunner(ctx context.Context) *JobRunner {
	return &JobRunner{ctx: ctx}
}

// Start launches fn under name, or returns ErrSeedInProgress while another
// job is running.
func (r *JobRunner) Start(name string, fn JobFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Running {
		return fmt.Errorf("%s is running: %w", r.status.Job, ErrSeedInProgress)
	}

	now := time.Now()
	r.status = JobStatus{Running: true, Job: name, StartedAt: &now}
	r.done = make(chan struct{})
	go r.run(name, fn, r.done)
	return nil
}

func (r *JobRunner) run(name string, fn JobFunc, done chan struct{}) {
	var (
		result interface{}
		err    error
	)
	defer close(done)
	defer func() {
		if p := recover(); p != nil {
			log.Printf("PANIC in job %s: %v", name, p)
			err = fmt.Errorf("job panicked: %v", p)
		}
		r.finish(result, err)
	}()

	log.Printf("Jobs: %s started", name)
	result, err = fn(r.ctx)
	if err != nil {
		log.Printf("Jobs: %s failed: %v", name, err)
		return
	}
	log.Printf("Jobs: %s finished", name)
}

func (r *JobRunner) finish(result interface{}, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.status.Running = false
	r.status.FinishedAt = &now
	r.status.Result = result
	if err != nil {
		r.status.Error = err.Error()
	}
}

// Status returns a snapshot of the current or last job.
func (r *JobRunner) Status() JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Wait blocks until the current job, if any, has finished.
func (r *JobRunner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}
