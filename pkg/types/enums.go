package types

import "fmt"

// ============================================================================
//                              传输种类
// ============================================================================

// TransportKind 传输种类
//
// 封闭的二元变体：流式（TCP/Unix）或数据报（UDP）。
// 构造后不可变更，所有选项转发都显式地按种类分派。
type TransportKind int

const (
	// TransportStream 流式传输
	TransportStream TransportKind = iota

	// TransportDatagram 数据报传输
	TransportDatagram
)

// String 返回种类字符串表示
func (k TransportKind) String() string {
	switch k {
	case TransportStream:
		return "stream"
	case TransportDatagram:
		return "datagram"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Valid 检查种类是否有效
func (k TransportKind) Valid() bool {
	return k == TransportStream || k == TransportDatagram
}

// ============================================================================
//                              多路径服务类型
// ============================================================================

// MultipathServiceType 多路径服务类型
//
// 对应平台多路径 TCP 的四种模式。
type MultipathServiceType int

const (
	// MultipathDisabled 禁用多路径
	MultipathDisabled MultipathServiceType = iota

	// MultipathHandover 故障切换模式：仅在主路径失效时使用备用路径
	MultipathHandover

	// MultipathInteractive 交互模式：低延迟优先，可能并行使用多条路径
	MultipathInteractive

	// MultipathAggregate 聚合模式：并行使用所有路径以提高吞吐
	MultipathAggregate
)

// String 返回服务类型字符串表示
func (m MultipathServiceType) String() string {
	switch m {
	case MultipathDisabled:
		return "disabled"
	case MultipathHandover:
		return "handover"
	case MultipathInteractive:
		return "interactive"
	case MultipathAggregate:
		return "aggregate"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// Valid 检查服务类型是否有效
func (m MultipathServiceType) Valid() bool {
	return m >= MultipathDisabled && m <= MultipathAggregate
}

// ============================================================================
//                              平台监听器状态
// ============================================================================

// ListenerState 平台监听器状态
//
// 底层监听原语的状态机：
//
//	Setup → Waiting → Ready → Cancelled
//	              ↘  Failed ↗
//
// Setup 是平台内部的初始状态，仅在 AdoptPreconfigured 场景下对外可见；
// 状态通知回调永远不会上报 Setup。
type ListenerState int

const (
	// ListenerSetup 初始状态：已构造但未启动
	ListenerSetup ListenerState = iota

	// ListenerWaiting 等待状态：已启动，等待网络可用
	ListenerWaiting

	// ListenerReady 就绪状态：绑定成功，可以接受连接
	ListenerReady

	// ListenerFailed 失败状态：绑定或运行中出错
	ListenerFailed

	// ListenerCancelled 已取消状态：终态
	ListenerCancelled
)

// String 返回状态字符串表示
func (s ListenerState) String() string {
	switch s {
	case ListenerSetup:
		return "setup"
	case ListenerWaiting:
		return "waiting"
	case ListenerReady:
		return "ready"
	case ListenerFailed:
		return "failed"
	case ListenerCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}
