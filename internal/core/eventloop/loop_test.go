package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_ExecuteFIFO(t *testing.T) {
	loop := NewLoop(nil)
	defer loop.Close()

	const n = 100
	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < n; i++ {
		i := i
		loop.Execute(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == n-1 {
				close(done)
			}
		})
	}

	<-done
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, n)
	for i, v := range order {
		assert.Equal(t, i, v, "任务必须按投递顺序执行")
	}
}

func TestLoop_InLoop(t *testing.T) {
	loop := NewLoop(nil)
	defer loop.Close()

	// 外部 goroutine 不在循环上
	assert.False(t, loop.InLoop())

	result := make(chan bool, 1)
	loop.Execute(func() {
		result <- loop.InLoop()
	})
	assert.True(t, <-result, "循环 goroutine 上 InLoop 必须为真")
}

func TestLoop_InLoop_OtherLoop(t *testing.T) {
	a := NewLoop(nil)
	b := NewLoop(nil)
	defer a.Close()
	defer b.Close()

	result := make(chan bool, 1)
	a.Execute(func() {
		result <- b.InLoop()
	})
	assert.False(t, <-result, "循环 A 的 goroutine 不在循环 B 上")
}

func TestLoop_Submit(t *testing.T) {
	loop := NewLoop(nil)
	defer loop.Close()

	f := loop.Submit(func() (any, error) {
		return 42, nil
	})

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestLoop_SubmitAfterClose(t *testing.T) {
	loop := NewLoop(nil)
	require.NoError(t, loop.Close())

	f := loop.Submit(func() (any, error) {
		t.Fatal("已关闭的循环不应执行任务")
		return nil, nil
	})

	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, ErrLoopClosed)
}

func TestLoop_Schedule(t *testing.T) {
	mock := clock.NewMock()
	loop := NewLoop(mock)
	defer loop.Close()

	fired := make(chan struct{})
	loop.Schedule(time.Second, func() {
		close(fired)
	})

	select {
	case <-fired:
		t.Fatal("延迟任务提前触发")
	case <-time.After(20 * time.Millisecond):
	}

	mock.Add(time.Second)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("延迟任务未触发")
	}
	t.Log("✅ 模拟时钟推进后延迟任务触发")
}

func TestLoop_ScheduleCancel(t *testing.T) {
	mock := clock.NewMock()
	loop := NewLoop(mock)
	defer loop.Close()

	fired := make(chan struct{})
	cancel := loop.Schedule(time.Second, func() {
		close(fired)
	})
	cancel()

	mock.Add(2 * time.Second)
	select {
	case <-fired:
		t.Fatal("已取消的延迟任务不应触发")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoop_CloseDrainsQueue(t *testing.T) {
	loop := NewLoop(nil)

	var mu sync.Mutex
	count := 0
	for i := 0; i < 50; i++ {
		loop.Execute(func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}

	require.NoError(t, loop.Close())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 50, count, "关闭前入队的任务必须全部执行")
}

func TestLoop_CloseFromLoopNoDeadlock(t *testing.T) {
	loop := NewLoop(nil)

	done := make(chan struct{})
	loop.Execute(func() {
		// 在循环自身上发起关闭不等待退出
		_ = loop.Close()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("循环自身发起关闭发生死锁")
	}
	<-loop.Done()
}
