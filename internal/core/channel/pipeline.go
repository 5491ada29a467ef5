package channel

import (
	"sync"

	pkgif "github.com/dep2p/go-netloop/pkg/interfaces"
)

// ============================================================================
//                              Pipeline 实现
// ============================================================================

// pipeline 处理器列表
//
// 生命周期事件（Active/Inactive/Read/Error）在通道的拥有循环上
// 按追加顺序扇出到处理器；AddLast 允许在任意 goroutine 调用
//（激活前装配），用锁保护处理器列表本身。
type pipeline struct {
	ch pkgif.Channel

	mu       sync.Mutex
	handlers []pkgif.Handler
}

// 确保实现接口
var _ pkgif.Pipeline = (*pipeline)(nil)

func newPipeline() *pipeline {
	return &pipeline{}
}

// bind 关联所属通道（构造后一次）
func (p *pipeline) bind(ch pkgif.Channel) {
	p.ch = ch
}

// AddLast 追加处理器
func (p *pipeline) AddLast(h pkgif.Handler) pkgif.Pipeline {
	p.mu.Lock()
	p.handlers = append(p.handlers, h)
	p.mu.Unlock()
	return p
}

func (p *pipeline) snapshot() []pkgif.Handler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pkgif.Handler(nil), p.handlers...)
}

// FireActive 通道激活事件
func (p *pipeline) FireActive() {
	for _, h := range p.snapshot() {
		h.Active(p.ch)
	}
}

// FireInactive 通道失活事件
func (p *pipeline) FireInactive() {
	for _, h := range p.snapshot() {
		h.Inactive(p.ch)
	}
}

// FireRead 入站读事件
func (p *pipeline) FireRead(msg any) {
	for _, h := range p.snapshot() {
		h.Read(p.ch, msg)
	}
}

// FireError 错误事件
func (p *pipeline) FireError(err error) {
	for _, h := range p.snapshot() {
		h.Error(p.ch, err)
	}
}
