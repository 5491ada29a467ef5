package channel

import (
	"fmt"

	"github.com/dep2p/go-netloop/internal/core/platform"
	pkgif "github.com/dep2p/go-netloop/pkg/interfaces"
	"github.com/dep2p/go-netloop/pkg/types"
)

// ============================================================================
//                              协议选项包
// ============================================================================

// ProtocolOptions 传输种类专属的套接字选项包
//
// 封闭变体：流式或数据报，种类在构造时固定，此后不可切换。
// 通用套接字选项（非通道级键）转发到当前激活的包做校验与查询。
// 选项包与其所属通道同循环，无内部锁。
type ProtocolOptions interface {
	// Kind 返回传输种类
	Kind() types.TransportKind

	// Set 设置一条通用套接字选项
	Set(opt pkgif.SocketOption, value int) error

	// Get 查询一条通用套接字选项
	Get(opt pkgif.SocketOption) (int, error)

	// forChild 派生子通道的独立选项包（同种类、空内容）
	forChild() ProtocolOptions

	// snapshot 导出为平台监听参数的透传选项
	snapshot() []platform.SockOpt
}

// sockOptBag 两种变体共享的存储
type sockOptBag struct {
	values map[pkgif.SocketOption]int
	order  []pkgif.SocketOption
}

func newSockOptBag() sockOptBag {
	return sockOptBag{values: make(map[pkgif.SocketOption]int)}
}

func (b *sockOptBag) set(opt pkgif.SocketOption, value int) error {
	if opt.Level < 0 || opt.Name < 0 {
		return fmt.Errorf("%w: socket option (%d,%d)", ErrUnsupportedOperation, opt.Level, opt.Name)
	}
	if _, seen := b.values[opt]; !seen {
		b.order = append(b.order, opt)
	}
	b.values[opt] = value
	return nil
}

func (b *sockOptBag) get(opt pkgif.SocketOption) (int, error) {
	v, ok := b.values[opt]
	if !ok {
		return 0, fmt.Errorf("%w: (%d,%d)", ErrSocketOptionUnset, opt.Level, opt.Name)
	}
	return v, nil
}

func (b *sockOptBag) snapshot() []platform.SockOpt {
	out := make([]platform.SockOpt, 0, len(b.order))
	for _, opt := range b.order {
		out = append(out, platform.SockOpt{Level: opt.Level, Name: opt.Name, Value: b.values[opt]})
	}
	return out
}

// StreamOptions 流式传输选项包
type StreamOptions struct {
	bag sockOptBag
}

// 确保实现接口
var _ ProtocolOptions = (*StreamOptions)(nil)

// NewStreamOptions 创建流式选项包
func NewStreamOptions() *StreamOptions {
	return &StreamOptions{bag: newSockOptBag()}
}

// Kind 返回流式传输
func (o *StreamOptions) Kind() types.TransportKind { return types.TransportStream }

// Set 设置一条通用套接字选项
func (o *StreamOptions) Set(opt pkgif.SocketOption, value int) error {
	return o.bag.set(opt, value)
}

// Get 查询一条通用套接字选项
func (o *StreamOptions) Get(opt pkgif.SocketOption) (int, error) {
	return o.bag.get(opt)
}

func (o *StreamOptions) forChild() ProtocolOptions {
	return NewStreamOptions()
}

func (o *StreamOptions) snapshot() []platform.SockOpt {
	return o.bag.snapshot()
}

// DatagramOptions 数据报传输选项包
type DatagramOptions struct {
	bag sockOptBag
}

// 确保实现接口
var _ ProtocolOptions = (*DatagramOptions)(nil)

// NewDatagramOptions 创建数据报选项包
func NewDatagramOptions() *DatagramOptions {
	return &DatagramOptions{bag: newSockOptBag()}
}

// Kind 返回数据报传输
func (o *DatagramOptions) Kind() types.TransportKind { return types.TransportDatagram }

// Set 设置一条通用套接字选项
func (o *DatagramOptions) Set(opt pkgif.SocketOption, value int) error {
	return o.bag.set(opt, value)
}

// Get 查询一条通用套接字选项
func (o *DatagramOptions) Get(opt pkgif.SocketOption) (int, error) {
	return o.bag.get(opt)
}

func (o *DatagramOptions) forChild() ProtocolOptions {
	return NewDatagramOptions()
}

func (o *DatagramOptions) snapshot() []platform.SockOpt {
	return o.bag.snapshot()
}

// newProtocolOptions 按传输种类构造选项包
func newProtocolOptions(kind types.TransportKind) ProtocolOptions {
	if kind == types.TransportDatagram {
		return NewDatagramOptions()
	}
	return NewStreamOptions()
}

// ============================================================================
//                              通道选项存储
// ============================================================================

// optionStore 监听通道的选项存储
//
// 与通道同循环，无内部锁；激活时折叠为平台监听参数。
// reuseAddr / reusePort / allowLocalEndpointReuse 三个标志在折叠时
// 合并为平台的单一 "允许端点重用"（平台不区分两个传统套接字选项）。
type optionStore struct {
	reuseAddr               bool
	reusePort               bool
	allowLocalEndpointReuse bool
	enablePeerToPeer        bool
	multipath               types.MultipathServiceType

	protocol ProtocolOptions
}

func newOptionStore(kind types.TransportKind, cfg Config) *optionStore {
	return &optionStore{
		reuseAddr:               cfg.ReuseAddr,
		reusePort:               cfg.ReusePort,
		allowLocalEndpointReuse: cfg.AllowLocalEndpointReuse,
		enablePeerToPeer:        cfg.EnablePeerToPeer,
		multipath:               cfg.Multipath,
		protocol:                newProtocolOptions(kind),
	}
}

// allowEndpointReuse 折叠后的端点重用标志
func (o *optionStore) allowEndpointReuse() bool {
	return o.reuseAddr || o.reusePort || o.allowLocalEndpointReuse
}

// setChannelOption 设置通道级选项
//
// 未识别的键是编程错误（panic），不作为可恢复错误返回。
func (o *optionStore) setChannelOption(key pkgif.ChannelOption, value any) error {
	switch key {
	case pkgif.OptionAutoRead:
		enabled, ok := value.(bool)
		if !ok {
			return fmt.Errorf("option %s: invalid value type %T", key, value)
		}
		// 监听通道强制自动读取
		if !enabled {
			return fmt.Errorf("%w: auto-read cannot be disabled", ErrUnsupportedOperation)
		}
		return nil

	case pkgif.OptionReuseAddr:
		return setBool(key, value, &o.reuseAddr)

	case pkgif.OptionReusePort:
		return setBool(key, value, &o.reusePort)

	case pkgif.OptionAllowLocalEndpointReuse:
		return setBool(key, value, &o.allowLocalEndpointReuse)

	case pkgif.OptionEnablePeerToPeer:
		return setBool(key, value, &o.enablePeerToPeer)

	case pkgif.OptionMultipathServiceType:
		mode, ok := value.(types.MultipathServiceType)
		if !ok {
			return fmt.Errorf("option %s: invalid value type %T", key, value)
		}
		if !mode.Valid() {
			return fmt.Errorf("option %s: unknown multipath service type %d", key, mode)
		}
		o.multipath = mode
		return nil

	case pkgif.OptionPlatformListener:
		return fmt.Errorf("%w: %s is read-only", ErrUnsupportedOperation, key)

	default:
		panic(fmt.Sprintf("netloop: unknown channel option %d", key))
	}
}

// getChannelOption 读取通道级选项
//
// OptionPlatformListener 由通道自身处理（需要句柄访问），不经过存储。
func (o *optionStore) getChannelOption(key pkgif.ChannelOption) (any, error) {
	switch key {
	case pkgif.OptionAutoRead:
		return true, nil
	case pkgif.OptionReuseAddr:
		return o.reuseAddr, nil
	case pkgif.OptionReusePort:
		return o.reusePort, nil
	case pkgif.OptionAllowLocalEndpointReuse:
		return o.allowLocalEndpointReuse, nil
	case pkgif.OptionEnablePeerToPeer:
		return o.enablePeerToPeer, nil
	case pkgif.OptionMultipathServiceType:
		return o.multipath, nil
	default:
		panic(fmt.Sprintf("netloop: unknown channel option %d", key))
	}
}

func setBool(key pkgif.ChannelOption, value any, dst *bool) error {
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("option %s: invalid value type %T", key, value)
	}
	*dst = b
	return nil
}
