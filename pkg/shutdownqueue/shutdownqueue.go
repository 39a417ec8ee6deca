// Package shutdownqueue holds a process-wide LIFO queue of cleanup
// tasks. Components register tasks via Add as they start; main drains
// the queue once on the way out:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	defer shutdownqueue.Shutdown(ctx)
//
// Tasks run once, in reverse registration order. Panics are recovered.
// Shutdown is idempotent; errors are aggregated with errors.Join.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task is one shutdown step. It should honor ctx.
type Task func(ctx context.Context) error

var (
	mu     sync.Mutex
	tasks  []Task
	closed bool
)

// Add registers a task to run on Shutdown. Nil tasks and registrations
// after shutdown has started are ignored.
func Add(t Task) {
	if t == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	if closed {
		return
	}

	tasks = append(tasks, t)
}

// Shutdown drains registered tasks in LIFO order. If ctx expires
// mid-drain, the remaining tasks are skipped and the context error is
// included in the returned aggregate.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	pending := tasks
	tasks = nil
	closed = true
	mu.Unlock()

	var errs []error

	for i := len(pending) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("shutdown canceled: %w", ctx.Err()))

			return errors.Join(errs...)
		default:
		}

		runTask(pending[i], ctx, &errs)
	}

	return errors.Join(errs...)
}

func runTask(t Task, ctx context.Context, errs *[]error) {
	defer func() {
		r := recover()
		if r != nil {
			*errs = append(*errs, fmt.Errorf("panic in shutdown task: %v", r))
		}
	}()

	err := t(ctx)
	if err != nil {
		*errs = append(*errs, err)
	}
}
