// Package platform 实现回调驱动的平台监听原语
//
// 对上层通道提供一个异步的、回调式的监听套接字抽象：
//   - Listener: 构造（可同步失败）→ Start(queue) → 状态通知 + 接受通知 → Cancel
//   - Queue: 专用串行回调队列，所有通知都在其上投递
//   - Parameters: 由通道选项折叠而来的监听参数
//
// # 状态机
//
//	Setup → Waiting → Ready → Cancelled
//	              ↘  Failed
//
// Start 之后所有状态变更通过 StateHandler 在回调队列上异步上报；
// 调用方绝不能在回调中直接触碰自己的线程约束状态，应先重派发。
//
// # 传输种类
//
// 流式（TCP/Unix）使用 net.ListenConfig 监听，接受循环带临时错误重试
// 与可选的接受速率限制；数据报（UDP）使用包解复用器，按远端地址
// 合成虚拟连接。端点重用通过套接字选项（SO_REUSEADDR/SO_REUSEPORT）
// 在 Control 回调中设置。
//
// # 架构定位
//
// Tier: Core Layer Level 1
//
// 依赖关系：
//   - 依赖：pkg/types, pkg/interfaces
//   - 被依赖：internal/core/channel
package platform
