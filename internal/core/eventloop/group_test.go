package eventloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_RoundRobin(t *testing.T) {
	g := NewGroup(3, nil)
	defer g.Close(context.Background())

	require.Equal(t, 3, g.Size())

	a := g.Next()
	b := g.Next()
	c := g.Next()
	assert.NotSame(t, a, b)
	assert.NotSame(t, b, c)
	assert.NotSame(t, a, c)

	// 第二轮回到起点
	assert.Same(t, a, g.Next())
	assert.Same(t, b, g.Next())
	assert.Same(t, c, g.Next())
	t.Log("✅ 循环池按轮转分配")
}

func TestGroup_DefaultSize(t *testing.T) {
	g := NewGroup(0, nil)
	defer g.Close(context.Background())
	assert.Greater(t, g.Size(), 0, "size 为 0 时回落到 CPU 核数")
}

func TestGroup_Close(t *testing.T) {
	g := NewGroup(2, nil)

	ran := make(chan struct{}, 2)
	g.Next().Execute(func() { ran <- struct{}{} })
	g.Next().Execute(func() { ran <- struct{}{} })

	require.NoError(t, g.Close(context.Background()))
	assert.Len(t, ran, 2, "关闭前入队的任务必须执行")
}
