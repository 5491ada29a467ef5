package eventloop

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
//                              Group 实现
// ============================================================================

// Group 固定大小的事件循环池
//
// 子通道按轮转（round-robin）从池中分配循环；循环在池创建时全部启动，
// 关闭时并行排空。
type Group struct {
	loops []*Loop
	next  atomic.Uint32
}

// NewGroup 创建循环池
//
// size <= 0 时使用 CPU 核数。
func NewGroup(size int, clk clock.Clock) *Group {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	loops := make([]*Loop, size)
	for i := range loops {
		loops[i] = NewLoop(clk)
	}
	logger.Debug("事件循环池已创建", "size", size)
	return &Group{loops: loops}
}

// Next 按轮转返回下一个循环
func (g *Group) Next() *Loop {
	idx := g.next.Add(1) - 1
	return g.loops[idx%uint32(len(g.loops))]
}

// Size 返回池大小
func (g *Group) Size() int {
	return len(g.loops)
}

// Close 关闭池中所有循环
//
// 并行发起关闭并等待全部排空；任一循环超时返回对应错误。
func (g *Group) Close(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, l := range g.loops {
		l := l
		eg.Go(func() error {
			return l.CloseContext(ctx)
		})
	}
	return eg.Wait()
}
