package interfaces

import (
	"net"

	"github.com/dep2p/go-netloop/pkg/types"
)

// ============================================================================
//                              平台监听原语边界
// ============================================================================

// PlatformListener 底层平台监听原语的内省边界
//
// 完整的状态机由 internal/core/platform 实现并假定其语义；
// 本接口只暴露通道内省（OptionPlatformListener）与收养
// （AdoptPreconfigured）所需的最小表面。
type PlatformListener interface {
	// State 返回当前状态
	State() types.ListenerState

	// Endpoint 返回解析后的本地端点
	//
	// 仅在 Ready 后有意义；之前返回 nil。
	Endpoint() net.Addr

	// Port 返回平台分配的具体端口
	//
	// 仅在 Ready 后有意义；没有具体端口（如 Unix 域套接字）时返回 0。
	Port() int

	// Cancel 请求取消监听
	//
	// 非抢占：完成确认仍通过状态回调异步到达。
	Cancel()
}
