package interfaces

import (
	"context"
	"time"
)

// ============================================================================
//                              EventLoop 接口
// ============================================================================

// EventLoop 单线程事件循环接口
//
// 每个通道永久绑定到一个事件循环；该通道的所有状态迁移都在循环上执行。
// 外部调用方通过 Execute/Submit 将任务编组到循环上，通过 InLoop 判断
// 当前 goroutine 是否就是循环自身（同步完成 vs. 异步重派发的路由依据）。
type EventLoop interface {
	// Execute 将任务投递到循环上异步执行
	//
	// 永不阻塞调用方。任务按投递顺序（FIFO）执行。
	Execute(task func())

	// Submit 将任务投递到循环上执行并返回其异步结果
	Submit(task func() (any, error)) Future

	// InLoop 检查当前 goroutine 是否为循环自身
	InLoop() bool

	// Schedule 延迟指定时间后在循环上执行任务
	//
	// 返回取消函数；任务尚未执行时调用可取消。
	Schedule(delay time.Duration, task func()) (cancel func())
}

// ============================================================================
//                              Future / Promise
// ============================================================================

// Future 异步结果的只读句柄
//
// 单次完成语义：成功或失败恰好一次，此后不可变。
type Future interface {
	// Done 返回完成信号 channel（完成后关闭）
	Done() <-chan struct{}

	// IsDone 检查是否已完成
	IsDone() bool

	// Value 返回成功值（未完成或失败时为 nil）
	Value() any

	// Err 返回失败原因（未完成或成功时为 nil）
	Err() error

	// Await 阻塞等待完成或上下文取消
	//
	// 只允许从非拥有循环的 goroutine 调用；在循环自身上等待会死锁。
	Await(ctx context.Context) (any, error)

	// OnComplete 注册完成回调
	//
	// 回调在 Future 所属的事件循环上执行；若已完成则立即投递。
	OnComplete(fn func(value any, err error))
}

// Promise 异步结果的可写句柄
//
// Complete/Fail 恰好生效一次；重复解析是受保护的空操作，返回 false。
type Promise interface {
	Future

	// Complete 以成功值解析
	Complete(value any) bool

	// Fail 以错误解析
	Fail(err error) bool
}
