// Package types 定义 netloop 的共享值类型
//
// 本包只包含纯数据类型，不依赖任何其他内部包：
//   - TransportKind: 传输种类（流式/数据报）
//   - MultipathServiceType: 多路径服务类型
//   - ListenerState: 平台监听器状态
//   - ServiceDescriptor: 服务通告三元组
//   - BindTarget: 绑定目标（主机端口 / 服务发现）
//
// # 架构定位
//
// Tier: 基础层 Level 0（无依赖）
//
// 依赖关系：
//   - 依赖：无
//   - 被依赖：pkg/interfaces, internal/core/*
package types
