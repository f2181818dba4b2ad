package sandbox

import (
	"context"
	"runtime/metrics"
	"sync"
	"sync/atomic"
	"time"
)

const (
	heapMetric       = "/memory/classes/heap/objects:bytes"
	memoryPollPeriod = time.Millisecond
)

// memoryGuard watches heap growth while one submission runs and cancels the run's
// context once growth passes the limit. The heap is sampled process wide, so
// concurrent runs count against each other.
type memoryGuard struct {
	limit    uint64
	baseline uint64
	cancel   context.CancelFunc
	stop     chan struct{}
	wg       sync.WaitGroup
	exceeded atomic.Bool
}

// guardMemory returns ctx unchanged and an inert guard when limit is zero.
func guardMemory(ctx context.Context, limit uint64) (context.Context, *memoryGuard) {
	g := &memoryGuard{limit: limit}
	if limit == 0 {
		return ctx, g
	}
	ctx, g.cancel = context.WithCancel(ctx)
	g.stop = make(chan struct{})

	g.baseline = readHeap()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ticker := time.NewTicker(memoryPollPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-g.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if g.Check() {
					return
				}
			}
		}
	}()
	return ctx, g
}

// Exceeded reports whether the run was cancelled for using too much memory.
func (g *memoryGuard) Exceeded() bool {
	return g.exceeded.Load()
}

// Check samples the heap now and reports whether the limit has been passed,
// cancelling the run if so.
func (g *memoryGuard) Check() bool {
	if g.limit == 0 {
		return false
	}
	if used := readHeap(); used > g.baseline && used-g.baseline > g.limit {
		g.exceeded.Store(true)
		g.cancel()
	}
	return g.exceeded.Load()
}

// Release stops the watcher and waits for it to exit.
func (g *memoryGuard) Release() {
	if g.stop == nil {
		return
	}
	close(g.stop)
	g.wg.Wait()
	g.cancel()
}

func (g *memoryGuard) err() error {
	return executionError("memory budget of %d MiB exceeded", g.limit>>20)
}

func readHeap() uint64 {
	sample := []metrics.Sample{{Name: heapMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return sample[0].Value.Uint64()
}
