package waitfor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForSucceedsEventually(t *testing.T) {
	calls := 0
	err := WaitFor(context.Background(), Options{Timeout: time.Second, Interval: time.Millisecond, MaxInterval: 5 * time.Millisecond}, func() (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("WaitFor error: %v", err)
	}
	if calls < 3 {
		t.Errorf("calls = %d, want >= 3", calls)
	}
}

func TestWaitForTimesOut(t *testing.T) {
	err := WaitFor(context.Background(), Options{Timeout: 10 * time.Millisecond, Interval: time.Millisecond, MaxInterval: time.Millisecond}, func() (bool, error) {
		return false, nil
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestWaitForPropagatesCheckError(t *testing.T) {
	wantErr := errors.New("boom")
	err := WaitFor(context.Background(), Options{Timeout: time.Second}, func() (bool, error) {
		return false, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestWaitForRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitFor(ctx, Options{Timeout: time.Second, Interval: time.Millisecond}, func() (bool, error) {
		return false, nil
	})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}
