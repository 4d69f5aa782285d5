package receiver

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolDoReturnsFnError(t *testing.T) {
	p := NewWorkerPool(2)
	sentinel := errors.New("boom")
	err := p.Do(func() error { return sentinel })
	require.Equal(t, sentinel, err)
}

func TestWorkerPoolDoReturnsNilOnSuccess(t *testing.T) {
	p := NewWorkerPool(2)
	err := p.Do(func() error { return nil })
	require.NoError(t, err)
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	const limit = 2
	p := NewWorkerPool(limit)

	var inFlight int32
	var maxObserved int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(func() error {
				cur := atomic.AddInt32(&inFlight, 1)
				for {
					max := atomic.LoadInt32(&maxObserved)
					if cur <= max || atomic.CompareAndSwapInt32(&maxObserved, max, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxObserved)), limit)
}
