// Package eventloop 实现单线程事件循环与异步结果原语
//
// 提供三类构件：
//   - Loop: 单 goroutine 的协作式任务循环，通道的拥有执行上下文
//   - Promise: 单次解析的异步结果，完成回调在拥有循环上执行
//   - Group: 固定大小的循环池，子通道按轮转分配
//
// # 线程模型
//
// 每个 Loop 由恰好一个 goroutine 驱动，任务按 FIFO 全序执行。
// 调用方通过 InLoop 判断自己是否就在循环上：在循环上的调用同步完成，
// 循环外的调用被显式重派发为队列任务异步完成。路由决策每次调用只做一次。
//
// 任何任务都不允许阻塞循环线程；阻塞等待（Promise.Await）只允许在
// 非拥有循环的 goroutine 上进行。
//
// # 快速开始
//
//	loop := eventloop.NewLoop(nil)
//	defer loop.Close()
//
//	fut := loop.Submit(func() (any, error) {
//	    return 42, nil
//	})
//	v, err := fut.Await(context.Background())
//
// # 架构定位
//
// Tier: Core Layer Level 1（无内部依赖）
//
// 依赖关系：
//   - 依赖：pkg/interfaces
//   - 被依赖：internal/core/channel
package eventloop
