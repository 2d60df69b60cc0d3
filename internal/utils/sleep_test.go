package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTimerSleeper_Elapses(t *testing.T) {
	start := time.Now()
	if err := (TimerSleeper{}).Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Sleep returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Sleep returned too early: %v", elapsed)
	}
}

func TestTimerSleeper_ContextCancellation(t *testing.T) {
	// 创建一个会在50ms后超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := (TimerSleeper{}).Sleep(ctx, 10*time.Second)
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Sleep did not honour cancellation, took %v", elapsed)
	}
}

func TestTimerSleeper_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := (TimerSleeper{}).Sleep(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSleeperFunc(t *testing.T) {
	var got time.Duration
	s := SleeperFunc(func(ctx context.Context, d time.Duration) error {
		got = d
		return nil
	})
	if err := s.Sleep(context.Background(), 3*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3*time.Second {
		t.Errorf("SleeperFunc received %v, want 3s", got)
	}
}
