package utils

import (
	"context"
	"time"
)

// Sleeper 可取消的等待，轮询循环通过它等待，测试中可替换
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc 函数适配器
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep 调用 f
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper 基于 time.Timer 的默认实现
type TimerSleeper struct{}

// Sleep 等待 d，或在 ctx 取消时提前返回 ctx.Err()
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
