package platform

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_SerialOrder(t *testing.T) {
	q := NewQueue()

	const n = 200
	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < n; i++ {
		i := i
		q.Dispatch(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == n-1 {
				close(done)
			}
		})
	}

	<-done
	q.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, n)
	for i, v := range order {
		assert.Equal(t, i, v, "回调必须按投递顺序串行执行")
	}
	t.Log("✅ 回调队列保持串行顺序")
}

func TestQueue_CloseDrains(t *testing.T) {
	q := NewQueue()

	var mu sync.Mutex
	count := 0
	for i := 0; i < 50; i++ {
		q.Dispatch(func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}

	q.Close()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 50, count, "关闭前投递的回调必须全部执行")
}

func TestQueue_DispatchAfterClose(t *testing.T) {
	q := NewQueue()

	require.NoError(t, q.Dispatch(func() {}), "存活队列投递成功")
	q.Close()

	// 已关闭的队列丢弃回调并返回 ErrQueueClosed，不阻塞不 panic
	err := q.Dispatch(func() {
		t.Fatal("已关闭队列不应执行回调")
	})
	assert.ErrorIs(t, err, ErrQueueClosed)
}
