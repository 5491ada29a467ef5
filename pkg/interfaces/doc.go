// Package interfaces 定义 netloop 的公共接口边界
//
// 本包只定义接口与选项键，不包含实现：
//   - EventLoop / Future / Promise: 事件循环与异步结果
//   - Channel / ListenerChannel: 通道外部接口
//   - Pipeline / Handler: 管道边界（处理器组合框架不在本项目范围内）
//   - PlatformListener: 底层平台监听原语的内省边界
//
// 实现位于 internal/core/* 各包。
//
// # 架构定位
//
// Tier: 基础层 Level 0
//
// 依赖关系：
//   - 依赖：pkg/types
//   - 被依赖：internal/core/*, 根包
package interfaces
