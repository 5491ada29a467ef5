package platform

import (
	"fmt"

	"github.com/dep2p/go-netloop/pkg/types"
)

// ============================================================================
//                              监听参数
// ============================================================================

// SockOpt 一条已经过选项包校验的套接字选项
type SockOpt struct {
	// Level 选项层级，如 SOL_SOCKET、IPPROTO_TCP
	Level int

	// Name 选项名
	Name int

	// Value 选项值
	Value int
}

// Parameters 平台监听器参数
//
// 由通道的选项存储在激活时折叠而来：
//   - AllowEndpointReuse 是 reuse-addr / reuse-port / 显式重用标志的合并
//     （平台不区分两个传统套接字选项）
//   - 主机/端口/Unix 路径目标设置必需本地端点
//   - 服务发现目标设置必需网络接口，通告元数据在构造后另行附加
type Parameters struct {
	// Kind 传输种类（构造后不可变更）
	Kind types.TransportKind

	// Host 必需本地端点的主机部分（主机/端口目标）
	Host string

	// Port 必需本地端点的端口，0 表示平台分配临时端口
	Port int

	// Path Unix 域套接字路径（仅流式）
	Path string

	// RequiredInterface 必需网络接口名（服务发现目标）
	RequiredInterface string

	// AllowEndpointReuse 允许本地端点重用（折叠标志）
	AllowEndpointReuse bool

	// EnablePeerToPeer 包含对等网络接口
	EnablePeerToPeer bool

	// Multipath 多路径服务类型
	Multipath types.MultipathServiceType

	// Backlog 积压上限：流式限制已投递未处理的接受通知数量，
	// 数据报作为每个虚拟连接的入站缓冲深度
	Backlog int

	// AcceptPerSecond 接受速率上限（每秒连接数，0 = 不限制）
	AcceptPerSecond float64

	// SocketOptions 透传的通用套接字选项（已由选项包校验）
	SocketOptions []SockOpt
}

// Validate 校验参数
//
// 构造监听器前同步执行；任何错误都包装 ErrInvalidParameters。
func (p Parameters) Validate() error {
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: unknown transport kind %d", ErrInvalidParameters, p.Kind)
	}
	if !p.Multipath.Valid() {
		return fmt.Errorf("%w: unknown multipath service type %d", ErrInvalidParameters, p.Multipath)
	}
	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidParameters, p.Port)
	}
	if p.Path != "" && p.Kind != types.TransportStream {
		return fmt.Errorf("%w: unix path target requires stream transport", ErrInvalidParameters)
	}
	if p.Path != "" && p.Host != "" {
		return fmt.Errorf("%w: unix path and host are mutually exclusive", ErrInvalidParameters)
	}
	if p.AcceptPerSecond < 0 {
		return fmt.Errorf("%w: negative accept rate", ErrInvalidParameters)
	}
	return nil
}

// network 返回 net 包使用的网络名
func (p Parameters) network() string {
	switch {
	case p.Path != "":
		return "unix"
	case p.Kind == types.TransportDatagram:
		return "udp"
	default:
		return "tcp"
	}
}

// listenAddress 返回 net 包使用的监听地址
//
// 服务发现目标在绑定时解析必需接口的地址，见 resolveInterfaceHost。
func (p Parameters) listenAddress(host string) string {
	if p.Path != "" {
		return p.Path
	}
	return fmt.Sprintf("%s:%d", host, p.Port)
}
