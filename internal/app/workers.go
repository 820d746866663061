// internal/app/workers.go
package app

import (
	"context"
	"sync"
)

// forEachConcurrently runs fn for every item with at most limit in flight.
// fn owns its own error handling. Once ctx is done no further items are
// started; those are returned so the caller can account for them. A panic in
// any worker is re-raised on the calling goroutine after all workers finish,
// so the caller's recover sees it.
func forEachConcurrently[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T)) (undispatched []T) {
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var (
		wg        sync.WaitGroup
		panicOnce sync.Once
		panicked  any
	)

	for i, item := range items {
		if !acquireSlot(ctx, sem) {
			undispatched = items[i:]
			break
		}

		wg.Add(1)
		go func(it T) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { panicked = r })
				}
			}()
			fn(ctx, it)
		}(item)
	}

	wg.Wait()
	if panicked != nil {
		panic(panicked)
	}
	return undispatched
}

// acquireSlot takes a semaphore slot unless ctx is already done or becomes
// done while waiting.
func acquireSlot(ctx context.Context, sem chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}
	if ctx.Err() != nil {
		<-sem
		return false
	}
	return true
}
