package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/strrl/split-specs-dashboard/internal/api"
	"github.com/strrl/split-specs-dashboard/pkg/models"
)

// LoadingState represents the state of an async operation
type LoadingState int

const (
	StateIdle LoadingState = iota
	StateLoadingProjects
	StateLoadingSessions
	StateLoadingSession
	StateLoadingKeys
	StateMutating
	StateError
)

func (s LoadingState) String() string {
	switch s {
	case StateLoadingProjects:
		return "loading projects"
	case StateLoadingSessions:
		return "loading sessions"
	case StateLoadingSession:
		return "loading session"
	case StateLoadingKeys:
		return "loading api keys"
	case StateMutating:
		return "saving"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Result is the outcome of an async call
type Result[T any] struct {
	Value T
	Err   error
}

// Async runs fn in a goroutine with its own timeout. The channel receives
// exactly one result unless ctx is cancelled first, in which case it is
// closed empty.
func Async[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) <-chan Result[T] {
	resultChan := make(chan Result[T], 1)

	go func() {
		defer close(resultChan)

		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		value, err := fn(callCtx)
		select {
		case resultChan <- Result[T]{Value: value, Err: err}:
		case <-ctx.Done():
		}
	}()

	return resultChan
}

// Await waits for the result of Async or for ctx to end.
func Await[T any](ctx context.Context, ch <-chan Result[T]) (T, error) {
	var zero T
	select {
	case result, ok := <-ch:
		if !ok {
			return zero, ctx.Err()
		}
		return result.Value, result.Err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// fetchRemainingPages loads pages 1..pageCount-1 of a project concurrently.
// The first page is already known to the caller.
func fetchRemainingPages(ctx context.Context, client *api.Client, name string, pageSize, pageCount int, timeout time.Duration) ([][]models.Session, error) {
	if pageCount <= 1 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chans := make([]<-chan Result[*models.Project], pageCount-1)
	for page := 1; page < pageCount; page++ {
		offset := page * pageSize
		chans[page-1] = Async(ctx, timeout, func(ctx context.Context) (*models.Project, error) {
			return client.Project(ctx, name, api.Pagination{Limit: pageSize, Offset: offset})
		})
	}

	pages := make([][]models.Session, pageCount-1)
	for i, ch := range chans {
		project, err := Await(ctx, ch)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d of %q: %w", i+1, name, err)
		}
		pages[i] = project.Sessions
	}
	return pages, nil
}
