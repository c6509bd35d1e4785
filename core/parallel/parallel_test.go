package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelize(t *testing.T) {
	t.Run("covers every index exactly once", func(t *testing.T) {
		const items = 1000
		visited := make([]int32, items)

		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&visited[i], 1)
			}
		})

		for i, count := range visited {
			assert.Equal(t, int32(1), count, "index %d visited %d times", i, count)
		}
	})

	t.Run("zero items does not invoke fn", func(t *testing.T) {
		called := false
		Parallelize(0, func(start, end int) {
			called = true
		})
		assert.False(t, called)
	})

	t.Run("fewer items than workers", func(t *testing.T) {
		var total int64
		Parallelize(3, func(start, end int) {
			atomic.AddInt64(&total, int64(end-start))
		})
		assert.Equal(t, int64(3), total)
	})
}

func TestParallelizeWithWorkers(t *testing.T) {
	t.Run("respects explicit worker count", func(t *testing.T) {
		var mu sync.Mutex
		ranges := 0

		ParallelizeWithWorkers(100, 4, func(start, end int) {
			mu.Lock()
			ranges++
			mu.Unlock()
		})

		assert.Equal(t, 4, ranges)
	})

	t.Run("non-positive workers falls back to CPU count", func(t *testing.T) {
		var total int64
		ParallelizeWithWorkers(50, -1, func(start, end int) {
			atomic.AddInt64(&total, int64(end-start))
		})
		assert.Equal(t, int64(50), total)
	})
}

func TestParallelizeWithThreshold(t *testing.T) {
	t.Run("sequential below threshold", func(t *testing.T) {
		calls := 0
		ParallelizeWithThreshold(10, 100, func(start, end int) {
			calls++
			assert.Equal(t, 0, start)
			assert.Equal(t, 10, end)
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("parallel above threshold", func(t *testing.T) {
		var total int64
		ParallelizeWithThreshold(500, 100, func(start, end int) {
			atomic.AddInt64(&total, int64(end-start))
		})
		assert.Equal(t, int64(500), total)
	})
}
