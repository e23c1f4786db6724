package util

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorker(t *testing.T) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var seen []int
	done := make(chan struct{})
	w := NewWorker("test", &wg, func(task Task) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, task.(int))
		if len(seen) == 3 {
			close(done)
		}
		return nil
	}, 3)
	w.Start()
	for i := 1; i <= 3; i++ {
		require.True(t, w.Submit(i))
	}
	<-done
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	wg.Wait()
	require.Equal(t, []int{1, 2, 3}, seen)
}

func TestWorkerQueueFull(t *testing.T) {
	var wg sync.WaitGroup
	w := NewWorker("full", &wg, func(task Task) error { return nil }, 1)
	require.True(t, w.Submit(1))
	require.False(t, w.Submit(2))
}

func TestTickWorker(t *testing.T) {
	var wg sync.WaitGroup
	var ticks atomic.Int32
	tw := NewTickWorker("tick", 5*time.Millisecond, func() { ticks.Add(1) }, &wg)
	tw.Start()
	require.True(t, tw.IsRunning())
	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, tw.Stop())
	wg.Wait()
	require.False(t, tw.IsRunning())
}
