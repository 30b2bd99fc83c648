package backups

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/logging"
)

// ErrRunnerStopped is returned by Submit after Stop.
var ErrRunnerStopped = errors.New("backup runner stopped")

// Executor runs or gives up on an acquired job.
type Executor interface {
	Run(ctx context.Context, job *Job) error
	Abort(ctx context.Context, job *Job, cause error)
}

// Runner executes jobs on a fixed pool of workers fed by a bounded queue.
type Runner struct {
	exec    Executor
	queue   chan *Job
	workers int
	log     logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

func NewRunner(exec Executor, workers, queueSize int, log logging.Logger) *Runner {
	return &Runner{
		exec:    exec,
		queue:   make(chan *Job, queueSize),
		workers: workers,
		log:     log,
	}
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.log.Info(ctx, "backup runner started", "workers", r.workers, "queue", cap(r.queue))
}

// Submit enqueues job without blocking. When the queue is full the job's
// lease is released by recording it as failed and common.ErrQueueFull is
// returned.
func (r *Runner) Submit(job *Job) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrRunnerStopped
	}

	select {
	case r.queue <- job:
		r.mu.Unlock()
		return nil
	default:
		r.mu.Unlock()
	}

	// Abort writes to storage, so it runs outside the lock.
	r.exec.Abort(context.Background(), job, common.ErrQueueFull)
	return common.ErrQueueFull
}

// Stop cancels in-flight runs, waits for the workers and fails every job
// still queued.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()

	for {
		select {
		case job := <-r.queue:
			r.exec.Abort(context.Background(), job, context.Canceled)
		default:
			r.log.Info(context.Background(), "backup runner stopped")
			return
		}
	}
}

func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-r.queue:
			if err := ctx.Err(); err != nil {
				r.exec.Abort(context.WithoutCancel(ctx), job, err)
				return
			}
			r.execute(ctx, id, job)
		}
	}
}

func (r *Runner) execute(ctx context.Context, id int, job *Job) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			r.log.Error(ctx, "backup worker recovered", "worker", id, "run_id", job.RunID, "error", err)
			r.exec.Abort(context.WithoutCancel(ctx), job, err)
		}
	}()

	if err := r.exec.Run(ctx, job); err != nil {
		r.log.Debug(ctx, "run ended with error", "worker", id, "run_id", job.RunID, "error", err)
	}
}
