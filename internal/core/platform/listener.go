package platform

import (
	"context"
	"net"
	"sync"

	tec "github.com/jbenet/go-temp-err-catcher"
	"golang.org/x/time/rate"

	pkgif "github.com/dep2p/go-netloop/pkg/interfaces"
	"github.com/dep2p/go-netloop/pkg/lib/log"
	"github.com/dep2p/go-netloop/pkg/types"
)

var logger = log.Logger("core/platform")

// ============================================================================
//                              回调类型
// ============================================================================

// StateHandler 状态通知回调
//
// 在回调队列上执行；state 为 Failed 时 err 携带失败原因，其余为 nil。
// Setup 永远不会上报。
type StateHandler func(state types.ListenerState, err error)

// AcceptHandler 接受通知回调
//
// 在回调队列上执行，每个新连接一次。
type AcceptHandler func(conn net.Conn)

// ============================================================================
//                              Listener 实现
// ============================================================================

// Listener 回调驱动的平台监听器
//
// 生命周期：New（可同步失败）→ SetStateHandler/SetAcceptHandler →
// Start(queue) → 异步状态通知 → Cancel。绑定与接受循环运行在
// 内部 goroutine 上，所有对外通知都经由回调队列串行投递。
type Listener struct {
	mu sync.Mutex

	params Parameters
	state  types.ListenerState

	stateHandler  StateHandler
	acceptHandler AcceptHandler
	queue         *Queue

	// 服务通告（构造后、启动前附加）
	advertised *types.ServiceDescriptor
	advertiser *advertiser

	ln net.Listener   // 流式
	pc net.PacketConn // 数据报
	dm *demux

	limiter *rate.Limiter

	// Backlog 信号量：限制已投递未处理的接受通知数量
	slots chan struct{}

	cancelled bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// 确保实现接口
var _ pkgif.PlatformListener = (*Listener)(nil)

// New 根据参数构造监听器
//
// 只做同步校验，不触碰网络；校验失败立即返回错误。
// 成功后监听器处于 Setup 状态。
func New(params Parameters) (*Listener, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		params: params,
		state:  types.ListenerSetup,
		ctx:    ctx,
		cancel: cancel,
	}
	if params.AcceptPerSecond > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(params.AcceptPerSecond), 1)
	}
	if params.Backlog > 0 {
		l.slots = make(chan struct{}, params.Backlog)
	}
	return l, nil
}

// SetStateHandler 设置状态通知回调
//
// 必须在 Start 之前调用。
func (l *Listener) SetStateHandler(h StateHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stateHandler = h
}

// SetAcceptHandler 设置接受通知回调
//
// 必须在 Start 之前调用。
func (l *Listener) SetAcceptHandler(h AcceptHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acceptHandler = h
}

// Advertise 附加服务通告元数据
//
// 监听器构造后、启动前调用；元数据只透传给通告器，不做解释。
func (l *Listener) Advertise(svc types.ServiceDescriptor) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != types.ListenerSetup {
		return ErrAlreadyStarted
	}
	l.advertised = &svc
	return nil
}

// State 返回当前状态
func (l *Listener) State() types.ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Parameters 返回监听参数副本
func (l *Listener) Parameters() Parameters {
	return l.params
}

// Start 在指定回调队列上启动监听器
//
// 仅允许从 Setup 状态启动；绑定异步进行，结果通过状态回调上报。
func (l *Listener) Start(q *Queue) error {
	l.mu.Lock()
	if l.cancelled {
		l.mu.Unlock()
		return ErrCancelled
	}
	if l.state != types.ListenerSetup {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	l.queue = q
	l.state = types.ListenerWaiting
	l.mu.Unlock()

	l.notify(types.ListenerWaiting, nil)
	go l.bind()
	return nil
}

// notify 将状态通知投递到回调队列
func (l *Listener) notify(state types.ListenerState, err error) {
	l.mu.Lock()
	h := l.stateHandler
	q := l.queue
	l.mu.Unlock()

	if h == nil || q == nil {
		return
	}
	if derr := q.Dispatch(func() {
		h(state, err)
	}); derr != nil {
		logger.Debug("回调队列已关闭，丢弃状态通知", "state", state.String())
	}
}

// transition 设置状态并投递通知
//
// 迁入 Failed 时在锁内复查取消标志：取消与失败竞争时取消优先，
// 改报 Cancelled，保证取消确认恰好送达一次而不是终止在 Failed。
func (l *Listener) transition(state types.ListenerState, err error) {
	l.mu.Lock()
	if state == types.ListenerFailed && l.cancelled {
		state = types.ListenerCancelled
		err = nil
	}
	l.state = state
	l.mu.Unlock()
	l.notify(state, err)
}

// bind 执行实际绑定
//
// 在内部 goroutine 上运行；成功后进入 Ready 并启动接受循环，
// 失败进入 Failed，期间被取消则进入 Cancelled。
func (l *Listener) bind() {
	params := l.params

	host := params.Host
	if params.RequiredInterface != "" {
		resolved, err := resolveInterfaceHost(params.RequiredInterface)
		if err != nil {
			l.bindFailed(err)
			return
		}
		host = resolved
	}

	lc := net.ListenConfig{
		Control: controlSocket(params),
	}
	if params.Kind == types.TransportStream && params.Multipath != types.MultipathDisabled {
		// Linux MPTCP；其他平台由 net 包静默忽略
		lc.SetMultipathTCP(true)
	}
	if params.EnablePeerToPeer {
		// Go 无对等网络接口（AWDL 类）控制面，仅记录意图
		logger.Debug("对等网络接口标志已记录", "network", params.network())
	}

	switch params.Kind {
	case types.TransportStream:
		ln, err := lc.Listen(l.ctx, params.network(), params.listenAddress(host))
		if err != nil {
			l.bindFailed(err)
			return
		}
		l.mu.Lock()
		if l.cancelled {
			l.mu.Unlock()
			_ = ln.Close()
			l.transition(types.ListenerCancelled, nil)
			return
		}
		l.ln = ln
		l.mu.Unlock()

	case types.TransportDatagram:
		pc, err := lc.ListenPacket(l.ctx, params.network(), params.listenAddress(host))
		if err != nil {
			l.bindFailed(err)
			return
		}
		l.mu.Lock()
		if l.cancelled {
			l.mu.Unlock()
			_ = pc.Close()
			l.transition(types.ListenerCancelled, nil)
			return
		}
		l.pc = pc
		l.dm = newDemux(pc, l, params.Backlog)
		l.mu.Unlock()
	}

	if err := l.startAdvertise(); err != nil {
		l.closeSockets()
		l.bindFailed(err)
		return
	}

	l.transition(types.ListenerReady, nil)

	if params.Kind == types.TransportStream {
		go l.acceptLoop()
	} else {
		go l.dm.run()
	}
}

// bindFailed 绑定失败路径
//
// 取消竞争绑定失败时优先上报 Cancelled。
func (l *Listener) bindFailed(err error) {
	l.mu.Lock()
	cancelled := l.cancelled
	l.mu.Unlock()

	if cancelled {
		l.transition(types.ListenerCancelled, nil)
		return
	}
	logger.Warn("监听器绑定失败", "network", l.params.network(), "error", err)
	l.transition(types.ListenerFailed, err)
}

// acceptLoop 流式接受循环
//
// 临时错误重试，永久错误结束循环：取消上报 Cancelled，否则 Failed。
func (l *Listener) acceptLoop() {
	var catcher tec.TempErrCatcher

	for {
		if l.limiter != nil {
			if err := l.limiter.Wait(l.ctx); err != nil {
				l.acceptDone(err)
				return
			}
		}

		conn, err := l.ln.Accept()
		if err != nil {
			if catcher.IsTemporary(err) {
				continue
			}
			l.acceptDone(err)
			return
		}
		l.deliver(conn)
	}
}

// deliver 将新连接投递到接受回调
//
// Backlog 槽位在投递前获取、回调执行完释放；槽位耗尽时阻塞，
// 反压接受循环直到积压的通知被处理。
func (l *Listener) deliver(conn net.Conn) {
	l.mu.Lock()
	h := l.acceptHandler
	q := l.queue
	l.mu.Unlock()

	if h == nil || q == nil {
		_ = conn.Close()
		return
	}
	if l.slots != nil {
		select {
		case l.slots <- struct{}{}:
		case <-l.ctx.Done():
			_ = conn.Close()
			return
		}
	}
	if err := q.Dispatch(func() {
		h(conn)
		if l.slots != nil {
			<-l.slots
		}
	}); err != nil {
		_ = conn.Close()
		if l.slots != nil {
			<-l.slots
		}
	}
}

// acceptDone 接受循环结束路径
func (l *Listener) acceptDone(err error) {
	l.mu.Lock()
	cancelled := l.cancelled
	l.mu.Unlock()

	if cancelled {
		l.transition(types.ListenerCancelled, nil)
		return
	}
	logger.Warn("接受循环异常结束", "error", err)
	l.transition(types.ListenerFailed, err)
}

// Cancel 请求取消监听
//
// 幂等；非抢占——完成确认通过 Cancelled 状态回调异步到达。
func (l *Listener) Cancel() {
	l.mu.Lock()
	if l.cancelled {
		l.mu.Unlock()
		return
	}
	l.cancelled = true
	state := l.state
	l.mu.Unlock()

	l.cancel()
	l.stopAdvertise()
	l.closeSockets()

	// Setup/Failed 状态没有运行中的循环来上报 Cancelled，这里直接迁移。
	// Waiting/Ready 的上报由绑定或接受循环的取消分支完成。
	if state == types.ListenerSetup || state == types.ListenerFailed {
		l.transition(types.ListenerCancelled, nil)
	}
}

// closeSockets 关闭底层套接字
func (l *Listener) closeSockets() {
	l.mu.Lock()
	ln := l.ln
	pc := l.pc
	l.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	if pc != nil {
		_ = pc.Close()
	}
}

// Endpoint 返回解析后的本地端点
//
// Ready 之前返回 nil。
func (l *Listener) Endpoint() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		return l.ln.Addr()
	}
	if l.pc != nil {
		return l.pc.LocalAddr()
	}
	return nil
}

// Port 返回平台分配的具体端口
//
// 没有具体端口（未就绪或 Unix 域套接字）时返回 0。
func (l *Listener) Port() int {
	switch addr := l.Endpoint().(type) {
	case *net.TCPAddr:
		return addr.Port
	case *net.UDPAddr:
		return addr.Port
	default:
		return 0
	}
}

// ============================================================================
//                              辅助函数
// ============================================================================

// resolveInterfaceHost 解析必需网络接口的监听地址
//
// 优先返回 IPv4 地址。
func resolveInterfaceHost(name string) (string, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return "", err
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", err
	}

	var first string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
		if first == "" {
			first = ipNet.IP.String()
		}
	}
	if first == "" {
		return "", ErrInvalidParameters
	}
	return first, nil
}
