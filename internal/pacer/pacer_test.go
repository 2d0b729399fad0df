package pacer

import (
	"context"
	"testing"
	"time"
)

func TestNewInterval(t *testing.T) {
	tests := []struct {
		name      string
		speedup   float64
		batchSize int
		wantZero  bool
	}{
		{"speedup 100000, single-claim batch floors to zero", 100_000, 1, true},
		{"speedup below 1 clamps to 1", 0.1, 1, false},
		{"speedup 100, large batch has measurable interval", 100, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.speedup, tt.batchSize)
			got := p.Interval()
			if tt.wantZero && got != 0 {
				t.Errorf("Interval() = %v, want 0", got)
			}
			if !tt.wantZero && got == 0 {
				t.Errorf("Interval() = 0, want nonzero")
			}
		})
	}
}

// TestNewIntervalMath checks the interval computation against the
// real-world baseline directly: 1,000,000 claims / 86,400s, scaled by
// speedup, inverted to a per-batch duration.
func TestNewIntervalMath(t *testing.T) {
	const speedup = 100.0
	const batchSize = 1000

	p := New(speedup, batchSize)

	effectiveRate := realWorldClaimsPerSecond * speedup
	wantSeconds := float64(batchSize) / effectiveRate
	want := time.Duration(wantSeconds * float64(time.Second))

	if p.Interval() != want {
		t.Errorf("Interval() = %v, want %v", p.Interval(), want)
	}
}

func TestSleepAfterBatchRespectsCancellation(t *testing.T) {
	p := New(1, 1000000) // large interval
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.SleepAfterBatch(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SleepAfterBatch did not return promptly on a cancelled context")
	}
}

func TestSleepAfterBatchZeroIntervalReturnsImmediately(t *testing.T) {
	p := New(100_000, 1) // 1 claim / (11.57 × 100000) claims/s ≈ 0.86µs, below the 1ms floor
	start := time.Now()
	p.SleepAfterBatch(context.Background())
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("SleepAfterBatch with zero interval took %v, want near-instant", elapsed)
	}
}
