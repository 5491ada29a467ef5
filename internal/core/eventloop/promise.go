package eventloop

import (
	"context"
	"errors"
	"sync"

	pkgif "github.com/dep2p/go-netloop/pkg/interfaces"
)

var (
	// ErrNilFailure Fail 传入 nil 错误
	ErrNilFailure = errors.New("promise failed with nil error")
)

// ============================================================================
//                              Promise 实现
// ============================================================================

// Promise 单次解析的异步结果
//
// Complete/Fail 恰好生效一次，此后值与错误不可变；重复解析是受保护的
// 空操作（返回 false）。完成回调在拥有循环上按注册顺序执行。
type Promise struct {
	loop *Loop

	mu        sync.Mutex
	completed bool
	value     any
	err       error
	callbacks []func(any, error)

	done chan struct{}
}

// 确保实现接口
var _ pkgif.Promise = (*Promise)(nil)

func newPromise(loop *Loop) *Promise {
	return &Promise{
		loop: loop,
		done: make(chan struct{}),
	}
}

// Loop 返回拥有本 Promise 的循环
func (p *Promise) Loop() *Loop {
	return p.loop
}

// Complete 以成功值解析
func (p *Promise) Complete(value any) bool {
	return p.resolve(value, nil)
}

// Fail 以错误解析
//
// err 为 nil 时按 ErrNilFailure 处理，失败路径永远携带非空错误。
func (p *Promise) Fail(err error) bool {
	if err == nil {
		err = ErrNilFailure
	}
	return p.resolve(nil, err)
}

func (p *Promise) resolve(value any, err error) bool {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return false
	}
	p.completed = true
	p.value = value
	p.err = err
	callbacks := p.callbacks
	p.callbacks = nil
	p.mu.Unlock()

	close(p.done)

	for _, cb := range callbacks {
		p.dispatch(cb, value, err)
	}
	return true
}

// dispatch 将回调投递到拥有循环
func (p *Promise) dispatch(cb func(any, error), value any, err error) {
	p.loop.Execute(func() {
		cb(value, err)
	})
}

// Done 返回完成信号 channel
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// IsDone 检查是否已完成
func (p *Promise) IsDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Value 返回成功值（未完成或失败时为 nil）
func (p *Promise) Value() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Err 返回失败原因（未完成或成功时为 nil）
func (p *Promise) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Await 阻塞等待完成或上下文取消
//
// 只允许从非拥有循环的 goroutine 调用；在循环自身上等待会死锁。
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.Value(), p.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnComplete 注册完成回调
//
// 回调在拥有循环上执行；若已完成则立即投递。
func (p *Promise) OnComplete(fn func(value any, err error)) {
	p.mu.Lock()
	if !p.completed {
		p.callbacks = append(p.callbacks, fn)
		p.mu.Unlock()
		return
	}
	value, err := p.value, p.err
	p.mu.Unlock()

	p.dispatch(fn, value, err)
}
