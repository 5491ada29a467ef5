// Package channel 实现监听通道状态机
//
// 核心职责是把回调驱动的平台监听原语适配成单线程的事件循环通道语义：
//
//   - 所有状态迁移在拥有循环上全序执行，外部调用自动编组
//   - 平台回调（状态通知、接受通知）先重派发到拥有循环再触碰状态
//   - 激活至多一个在途，绑定 Promise 恰好解析一次
//   - 关闭是吸收态，此后一切操作以 ErrIOOnClosedChannel 失败
//   - 接受的连接包装为子通道，移交到循环池中轮转分配的循环
//
// 地址缓存是唯一允许跨线程读取的状态，由独立互斥锁保护。
package channel
