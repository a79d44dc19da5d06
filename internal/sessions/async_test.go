package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strrl/split-specs-dashboard/internal/api"
	"github.com/strrl/split-specs-dashboard/internal/auth"
)

// TestAsync tests the value and error paths of Async/Await
func TestAsync(t *testing.T) {
	ctx := context.Background()
	v, err := Await(ctx, Async(ctx, time.Second, func(context.Context) (int, error) { return 42, nil }))
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = Await(ctx, Async(ctx, 0, func(context.Context) (int, error) { return 0, boom }))
	assert.ErrorIs(t, err, boom)
}

// TestAsyncTimeout tests that the per-call timeout reaches fn
func TestAsyncTimeout(t *testing.T) {
	ctx := context.Background()
	_, err := Await(ctx, Async(ctx, 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestAsyncCancellation tests cancellation of async operations
func TestAsyncCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	ch := Async(ctx, 0, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	<-started
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := Await(ctx, ch)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Await did not return after cancellation")
	}
}

// TestFetchRemainingPages tests the concurrent page fetch behind FetchProject
func TestFetchRemainingPages(t *testing.T) {
	svc, srv := newTestService(t, "")
	seedSessions(srv, "alpha", 7)

	pages, err := fetchRemainingPages(context.Background(), svc.client, "alpha", 3, 3, time.Second)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Len(t, pages[0], 3)
	assert.Len(t, pages[1], 1)

	pages, err = fetchRemainingPages(context.Background(), svc.client, "alpha", 3, 1, time.Second)
	require.NoError(t, err)
	assert.Nil(t, pages)
}

// TestFetchRemainingPages_Error tests that one failed page fails the fetch
func TestFetchRemainingPages_Error(t *testing.T) {
	_, srv := newTestService(t, "")
	seedSessions(srv, "alpha", 7)

	gate, err := auth.NewGate(context.Background(), auth.NewMemoryStore("bogus"), zerolog.Nop())
	require.NoError(t, err)
	client := api.NewClient(srv.Endpoint(), time.Second, gate, nil, zerolog.Nop())

	_, err = fetchRemainingPages(context.Background(), client, "alpha", 3, 3, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
