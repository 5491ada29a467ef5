package channel

import "github.com/dep2p/go-netloop/internal/core/eventloop"

// ============================================================================
//                              通道状态机
// ============================================================================

// stateKind 通道生命周期阶段
type stateKind int

const (
	// stateIdle 初始：已构造，未激活
	stateIdle stateKind = iota

	// stateActivating 激活中：绑定在途，持有未决绑定 Promise
	stateActivating

	// stateActive 活跃：绑定完成，正在接受连接
	stateActive

	// stateClosed 已关闭：吸收态
	stateClosed
)

func (k stateKind) String() string {
	switch k {
	case stateIdle:
		return "idle"
	case stateActivating:
		return "activating"
	case stateActive:
		return "active"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// channelState 带载荷的状态标签
//
// 只在拥有循环上读写。激活阶段携带未决绑定 Promise（至多一个在途）；
// 关闭阶段携带关闭原因（用户主动关闭时为 nil）。
type channelState struct {
	kind stateKind

	// pending 未决绑定 Promise（仅 activating）
	pending *eventloop.Promise

	// reason 关闭原因（仅 closed；用户主动关闭为 nil）
	reason error
}

// beginActivating 进入激活阶段
//
// 只允许从 idle 进入；其余状态属于调用方检查遗漏，直接 panic。
func (s *channelState) beginActivating(pending *eventloop.Promise) {
	if s.kind != stateIdle {
		panic("netloop: activation from " + s.kind.String() + " state")
	}
	s.kind = stateActivating
	s.pending = pending
}

// becomeActive 进入活跃阶段
//
// 只允许从 activating 进入；返回此前未决的绑定 Promise。
func (s *channelState) becomeActive() *eventloop.Promise {
	if s.kind != stateActivating {
		panic("netloop: bind completion in " + s.kind.String() + " state")
	}
	pending := s.pending
	s.kind = stateActive
	s.pending = nil
	return pending
}

// becomeClosed 进入关闭阶段（吸收态）
//
// 可从任意状态进入，幂等由调用方保证；返回此前未决的绑定 Promise
//（无则为 nil），由关闭路径以关闭原因失败它。
func (s *channelState) becomeClosed(reason error) *eventloop.Promise {
	pending := s.pending
	s.kind = stateClosed
	s.pending = nil
	s.reason = reason
	return pending
}
