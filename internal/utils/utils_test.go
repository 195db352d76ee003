package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForSleeps(t *testing.T) {
	originalSleep := sleep
	var slept time.Duration
	sleep = func(d time.Duration) { slept = d }
	defer func() { sleep = originalSleep }()

	if err := WaitFor(context.Background(), 3*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slept != 3*time.Second {
		t.Fatalf("expected 3s sleep, got %v", slept)
	}
}

func TestCallWithTimeoutReturnsResult(t *testing.T) {
	got, err := CallWithTimeout(context.Background(), time.Second, func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
}

func TestCallWithTimeoutAbandonsHungCall(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	start := time.Now()
	got, err := CallWithTimeout(context.Background(), 20*time.Millisecond, func(context.Context) (int, error) {
		<-block
		return 42, nil
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if got != 0 {
		t.Fatalf("expected zero value, got %d", got)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("call was not bounded")
	}
}

func TestCallWithTimeoutWithoutBound(t *testing.T) {
	got, err := CallWithTimeout(context.Background(), 0, func(ctx context.Context) (int, error) {
		if _, ok := ctx.Deadline(); ok {
			t.Fatalf("expected no deadline")
		}
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("unexpected result %d, %v", got, err)
	}
}

func TestClip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "short", input: "abc", limit: 5, expect: "abc"},
		{name: "cut", input: "abcdef", limit: 3, expect: "abc"},
		{name: "runes", input: "привет", limit: 2, expect: "пр"},
		{name: "zero", input: "abc", limit: 0, expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Clip(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
