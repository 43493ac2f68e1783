package dedup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guards() map[string]Guard {
	return map[string]Guard{
		"memory": NewMemory(),
		"lru":    NewLRU(1000, time.Hour),
	}
}

func TestGuard_RecordsThenReportsDuplicate(t *testing.T) {
	ctx := context.Background()
	for name, g := range guards() {
		t.Run(name, func(t *testing.T) {
			dup, err := g.CheckAndRecord(ctx, "evt-1")
			require.NoError(t, err)
			assert.False(t, dup)

			dup, err = g.CheckAndRecord(ctx, "evt-1")
			require.NoError(t, err)
			assert.True(t, dup)

			dup, err = g.CheckAndRecord(ctx, "evt-2")
			require.NoError(t, err)
			assert.False(t, dup)
		})
	}
}

func TestGuard_ConcurrentSameIDHasOneWinner(t *testing.T) {
	for name, g := range guards() {
		t.Run(name, func(t *testing.T) {
			const workers = 64
			var firsts atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					dup, err := g.CheckAndRecord(context.Background(), "same-id")
					if err == nil && !dup {
						firsts.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), firsts.Load())
		})
	}
}

func TestMemory_Len(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 10; i++ {
		_, _ = m.CheckAndRecord(context.Background(), fmt.Sprintf("e%d", i%5))
	}
	assert.Equal(t, 5, m.Len())
}

func TestLRU_EvictsOldestWhenFull(t *testing.T) {
	ctx := context.Background()
	l := NewLRU(2, 0)

	for _, id := range []string{"a", "b"} {
		dup, err := l.CheckAndRecord(ctx, id)
		require.NoError(t, err)
		require.False(t, dup)
	}

	// Resubmitting "a" must not refresh it.
	dup, _ := l.CheckAndRecord(ctx, "a")
	require.True(t, dup)

	dup, _ = l.CheckAndRecord(ctx, "c")
	require.False(t, dup)
	assert.Equal(t, 2, l.Len())

	dup, _ = l.CheckAndRecord(ctx, "a")
	assert.False(t, dup, "a should have been evicted as the oldest entry")
}

func TestLRU_ForgetsAfterTTL(t *testing.T) {
	ctx := context.Background()
	l := NewLRU(10, 20*time.Millisecond)

	dup, _ := l.CheckAndRecord(ctx, "a")
	require.False(t, dup)

	time.Sleep(60 * time.Millisecond)

	dup, _ = l.CheckAndRecord(ctx, "a")
	assert.False(t, dup)
}
