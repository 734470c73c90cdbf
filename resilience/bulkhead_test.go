package resilience

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewBulkhead_DefaultsToGOMAXPROCS(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})

	if got, want := b.Metrics().MaxConcurrent, runtime.GOMAXPROCS(0); got != want {
		t.Errorf("MaxConcurrent = %d, want %d", got, want)
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2, MaxWait: 10 * time.Millisecond})

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}

	if err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("third Acquire() error = %v, want ErrBulkheadFull", err)
	}

	b.Release()

	if err := b.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire after release error = %v", err)
	}

	m := b.Metrics()
	if m.Active != 2 || m.Available != 0 || m.Rejected != 1 {
		t.Errorf("Metrics() = %+v, want Active=2 Available=0 Rejected=1", m)
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Release()
	}()

	if err := b.Acquire(context.Background()); err != nil {
		t.Errorf("waiting Acquire() error = %v", err)
	}
}

func TestBulkhead_ContextCancelled(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestBulkhead_ExecuteBoundsConcurrency(t *testing.T) {
	const limit = 3
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: limit})

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func(context.Context) error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				current.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if peak.Load() > limit {
		t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), limit)
	}
	if got := b.Metrics().MaxActive; got > limit {
		t.Errorf("MaxActive = %d, want <= %d", got, limit)
	}
}
