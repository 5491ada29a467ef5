package interfaces

import (
	"net"

	"github.com/dep2p/go-netloop/pkg/types"
)

// ============================================================================
//                              通道选项键
// ============================================================================

// ChannelOption 通道级选项键
//
// 封闭集合，编译期已知；传入未识别的键是编程错误（panic），
// 不作为可恢复错误返回。
type ChannelOption int

const (
	// OptionAutoRead 自动读取开关
	//
	// 监听通道强制开启；设置 false 会以不支持错误拒绝。
	OptionAutoRead ChannelOption = iota

	// OptionReuseAddr SO_REUSEADDR 标志
	OptionReuseAddr

	// OptionReusePort SO_REUSEPORT 标志
	OptionReusePort

	// OptionAllowLocalEndpointReuse 显式的本地端点重用标志
	//
	// 与 ReuseAddr/ReusePort 在激活时折叠为平台的单一
	// "允许端点重用" 标志（平台不区分两个传统套接字选项）。
	OptionAllowLocalEndpointReuse

	// OptionEnablePeerToPeer 对等网络接口（AWDL 类）包含标志
	OptionEnablePeerToPeer

	// OptionMultipathServiceType 多路径服务类型
	OptionMultipathServiceType

	// OptionPlatformListener 平台监听器句柄内省（只读）
	//
	// 受平台能力门控；不可设置。
	OptionPlatformListener
)

// String 返回选项键字符串表示
func (o ChannelOption) String() string {
	switch o {
	case OptionAutoRead:
		return "auto-read"
	case OptionReuseAddr:
		return "so-reuseaddr"
	case OptionReusePort:
		return "so-reuseport"
	case OptionAllowLocalEndpointReuse:
		return "allow-local-endpoint-reuse"
	case OptionEnablePeerToPeer:
		return "enable-peer-to-peer"
	case OptionMultipathServiceType:
		return "multipath-service-type"
	case OptionPlatformListener:
		return "platform-listener"
	default:
		return "unknown"
	}
}

// SocketOption 通用套接字选项键
//
// 除上述通道级键以外的套接字选项，按 (level, name) 标识，
// 转发给当前传输种类的选项包做校验与应用。
type SocketOption struct {
	// Level 选项层级，如 SOL_SOCKET、IPPROTO_TCP
	Level int

	// Name 选项名，如 TCP_NODELAY
	Name int
}

// ============================================================================
//                              Channel 接口
// ============================================================================

// Channel 通道外部接口
//
// 所有状态迁移在拥有事件循环上全序执行；地址查询是唯一明确允许
// 跨线程的操作。
type Channel interface {
	// ID 返回通道唯一标识（用于日志）
	ID() string

	// EventLoop 返回拥有本通道的事件循环
	EventLoop() EventLoop

	// Pipeline 返回通道管道
	Pipeline() Pipeline

	// LocalAddr 返回本地地址快照
	//
	// 可从任意 goroutine 调用；绑定完成前为 nil。
	LocalAddr() net.Addr

	// RemoteAddr 返回远端地址快照
	//
	// 监听通道永远返回 nil（监听器没有远端对等方）。
	RemoteAddr() net.Addr

	// IsActive 检查通道是否处于活跃状态
	IsActive() bool

	// IsWritable 检查通道当前是否可写
	IsWritable() bool

	// SetOption 设置通道选项
	//
	// 必须在拥有循环上执行；从其他 goroutine 调用时自动编组。
	// key 为 ChannelOption 或 SocketOption；其余类型 panic。
	SetOption(key any, value any) Future

	// GetOption 读取通道选项
	GetOption(key any) Future

	// Write 写出站数据（监听通道以不支持错误拒绝）
	Write(msg any) Future

	// Flush 冲刷出站缓冲（监听通道为空操作）
	Flush()

	// Read 请求读取（auto-read 强制开启时为空操作）
	Read()

	// Close 关闭通道
	//
	// 幂等；返回的 Future 与 CloseFuture 相同，恰好解析一次。
	Close() Future

	// CloseFuture 返回通道关闭 Future
	CloseFuture() Future
}

// ListenerChannel 监听通道外部接口
type ListenerChannel interface {
	Channel

	// Activate 绑定并启动监听
	//
	// 前置条件：无未决激活、通道未关闭。
	Activate(target types.BindTarget) Future

	// AdoptPreconfigured 收养已构造、未启动的平台监听器
	//
	// 仅当监听器处于初始 setup 状态时继续；否则以
	// ErrNotPreConfigured 失败且无副作用。
	AdoptPreconfigured(ln PlatformListener) Future
}

// ============================================================================
//                              Pipeline 边界
// ============================================================================

// Pipeline 通道管道边界
//
// netloop 通过生命周期回调驱动管道，但不实现通用的处理器组合框架；
// 此处只是驱动边界。
type Pipeline interface {
	// AddLast 追加处理器
	AddLast(h Handler) Pipeline

	// FireActive 通道激活事件
	FireActive()

	// FireInactive 通道失活事件
	FireInactive()

	// FireRead 入站读事件
	FireRead(msg any)

	// FireError 错误事件
	FireError(err error)
}

// Handler 管道处理器
type Handler interface {
	// Active 通道激活
	Active(ch Channel)

	// Inactive 通道失活
	Inactive(ch Channel)

	// Read 入站数据
	Read(ch Channel, msg any)

	// Error 错误通知
	Error(ch Channel, err error)
}

// NopHandler 空处理器，可嵌入以省略不关心的回调
type NopHandler struct{}

// Active 空实现
func (NopHandler) Active(Channel) {}

// Inactive 空实现
func (NopHandler) Inactive(Channel) {}

// Read 空实现
func (NopHandler) Read(Channel, any) {}

// Error 空实现
func (NopHandler) Error(Channel, error) {}
