package workflows

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken
	ErrQueueFull = ierr.NewError("task queue is full").Mark(ierr.ErrSystem)
	// ErrRunnerStopped is returned by Submit after Stop
	ErrRunnerStopped = ierr.NewError("task runner stopped").Mark(ierr.ErrSystem)
)

// FailureKind classifies a dead-lettered task
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailurePanic     FailureKind = "panic"
	FailureQueueFull FailureKind = "queue_full"
)

// Task is one unit of background work
type Task struct {
	Name string
	Key  string
	Run  func(ctx context.Context) error
	// OnFailure is called after the task is dead-lettered
	OnFailure func(ctx context.Context, kind FailureKind)
}

// DeadLetter describes a task that did not complete
type DeadLetter struct {
	Task     string      `json:"task"`
	Key      string      `json:"key"`
	Kind     FailureKind `json:"kind"`
	Error    string      `json:"error"`
	FailedAt time.Time   `json:"failed_at"`
}

type deadLetterStore interface {
	PushDeadLetter(ctx context.Context, payload []byte) error
}

type eventPublisher interface {
	Publish(ctx context.Context, name string, data map[string]any) error
}

// DeadLetterSink records failed tasks in the log, the Redis dead-letter
// list and the event bus. Store and events are optional.
type DeadLetterSink struct {
	store  deadLetterStore
	events eventPublisher
	logger *logrus.Logger
}

// NewDeadLetterSink creates a new sink
func NewDeadLetterSink(store deadLetterStore, events eventPublisher, logger *logrus.Logger) *DeadLetterSink {
	return &DeadLetterSink{store: store, events: events, logger: logger}
}

// Record stores letter wherever it can and never fails
func (s *DeadLetterSink) Record(ctx context.Context, letter DeadLetter) {
	s.logger.WithFields(logrus.Fields{
		"task":  letter.Task,
		"key":   letter.Key,
		"kind":  letter.Kind,
		"error": letter.Error,
	}).Error("Task dead-lettered")

	if s.store != nil {
		payload, err := json.Marshal(letter)
		if err == nil {
			err = s.store.PushDeadLetter(ctx, payload)
		}
		if err != nil {
			s.logger.WithField("error", err.Error()).Warn("Could not store dead letter")
		}
	}

	if s.events != nil {
		err := s.events.Publish(ctx, EventTaskFailed, map[string]any{
			"task":      letter.Task,
			"key":       letter.Key,
			"kind":      letter.Kind,
			"error":     letter.Error,
			"failed_at": letter.FailedAt.Format(time.RFC3339),
		})
		if err != nil {
			s.logger.WithField("error", err.Error()).Warn("Could not publish dead letter")
		}
	}
}

// Runner executes tasks on a fixed pool of workers fed by a bounded queue
type Runner struct {
	queue   chan Task
	workers int
	timeout time.Duration
	sink    *DeadLetterSink
	logger  *logrus.Logger

	wg      conc.WaitGroup
	mu      sync.RWMutex
	stopped bool
	once    sync.Once
}

// NewRunner creates a new runner
func NewRunner(workers, queueSize int, timeout time.Duration, sink *DeadLetterSink, logger *logrus.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Runner{
		queue:   make(chan Task, queueSize),
		workers: workers,
		timeout: timeout,
		sink:    sink,
		logger:  logger,
	}
}

// Start launches the workers. Tasks inherit ctx.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		r.wg.Go(func() {
			for task := range r.queue {
				r.execute(ctx, task)
			}
		})
	}
	r.logger.WithFields(logrus.Fields{
		"workers":    r.workers,
		"queue_size": cap(r.queue),
		"timeout":    r.timeout.String(),
	}).Info("Task runner started")
}

// Submit queues task without blocking
func (r *Runner) Submit(task Task) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return ErrRunnerStopped
	}

	select {
	case r.queue <- task:
		return nil
	default:
		r.fail(context.Background(), task, FailureQueueFull, ErrQueueFull)
		return ErrQueueFull
	}
}

// Stop refuses new tasks and waits for queued ones to finish
func (r *Runner) Stop() {
	r.once.Do(func() {
		r.mu.Lock()
		r.stopped = true
		close(r.queue)
		r.mu.Unlock()
	})
	r.wg.Wait()
	r.logger.Info("Task runner stopped")
}

func (r *Runner) execute(parent context.Context, task Task) {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	start := time.Now()
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = task.Run(ctx)
	})

	logger := r.logger.WithFields(logrus.Fields{
		"task":     task.Name,
		"key":      task.Key,
		"duration": time.Since(start).String(),
	})

	switch {
	case catcher.Recovered() != nil:
		r.fail(parent, task, FailurePanic, catcher.Recovered().AsError())
	case ctx.Err() == context.DeadlineExceeded:
		if err == nil {
			err = ctx.Err()
		}
		r.fail(parent, task, FailureTimeout, err)
	case err != nil:
		logger.WithField("error", err.Error()).Warn("Task finished with error")
	default:
		logger.Debug("Task completed")
	}
}

func (r *Runner) fail(parent context.Context, task Task, kind FailureKind, err error) {
	// the task context may be gone already
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), 15*time.Second)
	defer cancel()

	if r.sink != nil {
		r.sink.Record(ctx, DeadLetter{
			Task:     task.Name,
			Key:      task.Key,
			Kind:     kind,
			Error:    ierr.Truncate(err.Error(), 500),
			FailedAt: time.Now(),
		})
	}
	if task.OnFailure != nil {
		task.OnFailure(ctx, kind)
	}
}
