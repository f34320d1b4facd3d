package sender

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcherCountsFailedJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 0, RetryBackoff: time.Millisecond})

	// errors.New produces a permanent error, so no retries happen.
	if err := d.Enqueue(context.Background(), "sendMessage", func() error {
		return errors.New("bad request")
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := d.Enqueue(context.Background(), "sendMessage", func() error {
		return nil
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	d.Close()

	if got := d.ErrorCount(); got != 1 {
		t.Fatalf("ErrorCount() = %d, want 1", got)
	}
}

func TestDispatcherEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	d.Close()

	err := d.Enqueue(context.Background(), "sendMessage", func() error { return nil })
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v, want ErrQueueClosed", err)
	}
}

func TestDispatcherRejectsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	defer d.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	if err := d.Enqueue(context.Background(), "block", func() error {
		close(started)
		<-release
		return nil
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-started

	// Worker is busy, so the single slot fills and the next job is rejected.
	if err := d.Enqueue(context.Background(), "fill", func() error { return nil }); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	err := d.Enqueue(context.Background(), "overflow", func() error { return nil })
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	close(release)
}
