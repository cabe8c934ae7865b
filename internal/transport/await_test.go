package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAwaitReturnsResult(t *testing.T) {
	got, err := Await(context.Background(), func() (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Fatalf("expected 42, nil; got %d, %v", got, err)
	}
}

func TestAwaitStopsOnDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Await(ctx, func() (string, error) {
		<-release
		return "late", nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("waited for the call: %s", elapsed)
	}
}

func TestAwaitCancelledBeforeCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Await(ctx, func() (int, error) {
		called = true
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected canceled without call, got %v (called=%v)", err, called)
	}
}
