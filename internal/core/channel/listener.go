package channel

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dep2p/go-netloop/internal/core/eventloop"
	"github.com/dep2p/go-netloop/internal/core/platform"
	pkgif "github.com/dep2p/go-netloop/pkg/interfaces"
	"github.com/dep2p/go-netloop/pkg/lib/log"
	"github.com/dep2p/go-netloop/pkg/types"
)

var logger = log.Logger("core/channel")

// ============================================================================
//                              监听通道
// ============================================================================

// ListenerChannel 监听通道
//
// 把回调驱动的平台监听器适配成事件循环通道：绑定、状态迁移、
// 接受与关闭全部在拥有循环上全序执行；平台回调经由回调队列到达，
// 先重派发到循环再触碰状态。接受的连接包装为子通道，移交到
// 循环池中轮转分配的循环，监听侧不保留反向引用。
type ListenerChannel struct {
	id    string
	loop  *eventloop.Loop
	group *eventloop.Group

	pipeline *pipeline
	opts     *optionStore
	cfg      Config
	metrics  *Metrics

	// 循环约束状态
	state  channelState
	handle *platform.Listener
	queue  *platform.Queue

	// 跨线程可读
	addrs  addrCache
	active atomic.Bool

	closePromise *eventloop.Promise
}

// 确保实现接口
var _ pkgif.ListenerChannel = (*ListenerChannel)(nil)

// NewListenerChannel 创建监听通道
//
// kind 固定传输种类（流式/数据报），此后不可变更；通道永久绑定到
// loop，接受的子通道从 group 轮转分配。metrics 可为 nil。
func NewListenerChannel(loop *eventloop.Loop, group *eventloop.Group, kind types.TransportKind, cfg Config, metrics *Metrics) *ListenerChannel {
	c := &ListenerChannel{
		id:           uuid.NewString(),
		loop:         loop,
		group:        group,
		pipeline:     newPipeline(),
		opts:         newOptionStore(kind, cfg),
		cfg:          cfg,
		metrics:      metrics,
		closePromise: loop.NewPromise(),
	}
	c.pipeline.bind(c)
	return c
}

// ID 返回通道唯一标识
func (c *ListenerChannel) ID() string {
	return c.id
}

// EventLoop 返回拥有循环
func (c *ListenerChannel) EventLoop() pkgif.EventLoop {
	return c.loop
}

// Pipeline 返回通道管道
func (c *ListenerChannel) Pipeline() pkgif.Pipeline {
	return c.pipeline
}

// LocalAddr 返回本地地址快照（任意 goroutine 可调用）
func (c *ListenerChannel) LocalAddr() net.Addr {
	return c.addrs.Local()
}

// RemoteAddr 监听通道没有远端对等方，恒为 nil
func (c *ListenerChannel) RemoteAddr() net.Addr {
	return nil
}

// IsActive 检查通道是否活跃
func (c *ListenerChannel) IsActive() bool {
	return c.active.Load()
}

// IsWritable 监听通道恒为可写
//
// 监听通道没有出站缓冲，可写性没有背压含义。
func (c *ListenerChannel) IsWritable() bool {
	return true
}

// run 把任务编组到拥有循环；已在循环上则同步执行
func (c *ListenerChannel) run(task func()) {
	if c.loop.InLoop() {
		task()
		return
	}
	c.loop.Execute(task)
}

// submit 把任务编组到拥有循环并返回结果 Future
func (c *ListenerChannel) submit(task func() (any, error)) pkgif.Future {
	if c.loop.InLoop() {
		p := c.loop.NewPromise()
		v, err := task()
		if err != nil {
			p.Fail(err)
		} else {
			p.Complete(v)
		}
		return p
	}
	return c.loop.Submit(task)
}

// ============================================================================
//                              激活
// ============================================================================

// Activate 绑定并启动监听
//
// 前置条件：无在途激活、通道未关闭。返回的 Future 在绑定完成
//（本地地址解析成功）时以成功解析，失败路径经由通道关闭。
func (c *ListenerChannel) Activate(target types.BindTarget) pkgif.Future {
	p := c.loop.NewPromise()
	c.run(func() {
		c.activate0(target, p)
	})
	return p
}

func (c *ListenerChannel) activate0(target types.BindTarget, p *eventloop.Promise) {
	if err := c.checkActivatable(); err != nil {
		p.Fail(err)
		return
	}

	params := c.buildParameters(target)
	ln, err := platform.New(params)
	if err != nil {
		// 同步构造失败走通用关闭路径
		p.Fail(err)
		c.doClose(err)
		return
	}
	if target.IsService() {
		if aerr := ln.Advertise(target.Service()); aerr != nil {
			p.Fail(aerr)
			c.doClose(aerr)
			return
		}
	}

	c.startListener(ln, p)
	logger.Debug("监听通道激活中", "channel", c.id, "target", target.String())
}

// AdoptPreconfigured 收养已构造、未启动的平台监听器
//
// 仅当监听器处于初始 setup 状态时继续；否则以 ErrNotPreConfigured
// 失败且无副作用。
func (c *ListenerChannel) AdoptPreconfigured(ln pkgif.PlatformListener) pkgif.Future {
	p := c.loop.NewPromise()
	c.run(func() {
		c.adopt0(ln, p)
	})
	return p
}

func (c *ListenerChannel) adopt0(ln pkgif.PlatformListener, p *eventloop.Promise) {
	if err := c.checkActivatable(); err != nil {
		p.Fail(err)
		return
	}

	pl, ok := ln.(*platform.Listener)
	if !ok || pl.State() != types.ListenerSetup {
		p.Fail(ErrNotPreConfigured)
		return
	}

	c.startListener(pl, p)
	logger.Debug("监听通道收养预配置监听器", "channel", c.id)
}

// checkActivatable 激活前置检查
func (c *ListenerChannel) checkActivatable() error {
	switch c.state.kind {
	case stateClosed:
		return ErrIOOnClosedChannel
	case stateActivating:
		return ErrActivationPending
	case stateActive:
		return ErrAlreadyActivated
	default:
		return nil
	}
}

// startListener 接管监听器并启动
//
// 进入 activating，p 成为唯一在途绑定 Promise。
func (c *ListenerChannel) startListener(ln *platform.Listener, p *eventloop.Promise) {
	ln.SetStateHandler(c.stateChanged)
	ln.SetAcceptHandler(c.accepted)

	c.handle = ln
	c.queue = platform.NewQueue()
	c.state.beginActivating(p)

	if err := ln.Start(c.queue); err != nil {
		// 启动竞争（监听器被并发启动）视同未预配置；回退到 idle 无副作用
		c.state.kind = stateIdle
		c.state.pending = nil
		c.handle = nil
		c.releaseQueue()
		p.Fail(ErrNotPreConfigured)
	}
}

// buildParameters 从选项存储与绑定目标折叠平台监听参数
func (c *ListenerChannel) buildParameters(target types.BindTarget) platform.Parameters {
	params := platform.Parameters{
		Kind:               c.opts.protocol.Kind(),
		AllowEndpointReuse: c.opts.allowEndpointReuse(),
		EnablePeerToPeer:   c.opts.enablePeerToPeer,
		Multipath:          c.opts.multipath,
		Backlog:            c.cfg.Backlog,
		AcceptPerSecond:    c.cfg.AcceptPerSecond,
		SocketOptions:      c.opts.protocol.snapshot(),
	}
	switch {
	case target.IsHostPort():
		params.Host = target.Host()
		params.Port = target.Port()
	case target.IsUnixPath():
		params.Path = target.Path()
	case target.IsService():
		params.RequiredInterface = target.Interface()
	}
	return params
}

// ============================================================================
//                              平台回调桥
// ============================================================================

// stateChanged 平台状态通知入口
//
// 在平台回调队列上执行；先重派发到拥有循环再触碰状态。
func (c *ListenerChannel) stateChanged(state types.ListenerState, err error) {
	c.loop.Execute(func() {
		c.onPlatformState(state, err)
	})
}

func (c *ListenerChannel) onPlatformState(state types.ListenerState, err error) {
	switch state {
	case types.ListenerWaiting:
		// 等待网络可用；不产生通道状态迁移
		logger.Debug("平台监听器等待中", "channel", c.id)

	case types.ListenerReady:
		c.bindComplete()

	case types.ListenerFailed:
		c.doClose(&PlatformError{Err: err})

	case types.ListenerCancelled:
		// 取消只能由通道关闭触发；此时清理句柄
		if c.state.kind != stateClosed {
			panic("netloop: platform listener cancelled without channel close")
		}
		c.releaseListener()

	default:
		// setup 永远不应出现在状态通知中
		panic(fmt.Sprintf("netloop: unexpected platform listener state %s", state))
	}
}

// bindComplete 绑定完成
//
// 解析本地地址（请求端口 0 时替换为平台分配端口——端点本身即携带
// 具体端口），写入地址缓存，迁移到 active，绑定 Promise 恰好成功一次。
func (c *ListenerChannel) bindComplete() {
	if c.state.kind == stateClosed {
		// 就绪通知与关闭竞争：关闭已发起取消，忽略
		return
	}

	ep := c.handle.Endpoint()
	if ep == nil {
		c.doClose(ErrUnableToResolveEndpoint)
		return
	}

	c.addrs.setLocal(ep)
	pending := c.state.becomeActive()
	c.active.Store(true)

	c.metrics.ListenerUp()
	logger.Info("监听通道已激活", "channel", c.id, "local", ep.String())

	pending.Complete(nil)
	c.pipeline.FireActive()
}

// accepted 平台接受通知入口
//
// 在平台回调队列上执行；重派发到拥有循环后做子通道移交。
func (c *ListenerChannel) accepted(conn net.Conn) {
	c.loop.Execute(func() {
		c.onAccepted(conn)
	})
}

// onAccepted 子通道移交
//
// 为连接包装子通道，绑定到循环池轮转分配的循环，注册任务投递后
// 即告完成（fire-and-forget）：注册失败只关闭子通道，不影响监听。
// 监听侧不保留对子通道的引用。关闭后、取消确认前到达的接受通知
// 仍然移交：子通道的生命周期独立于监听通道。
func (c *ListenerChannel) onAccepted(conn net.Conn) {
	c.metrics.ConnAccepted()

	child := newChildChannel(conn, c.group.Next(), c.opts.protocol.forChild(), c.metrics)

	// 监听管道的读事件载荷是新的子通道；调用方在此装配子通道的管道，
	// 装配先于子通道循环上的注册任务执行
	c.pipeline.FireRead(pkgif.Channel(child))

	child.register()
	logger.Debug("子通道已移交", "listener", c.id, "child", child.ID(), "remote", conn.RemoteAddr())
}

// ============================================================================
//                              选项
// ============================================================================

// SetOption 设置通道选项
//
// 在拥有循环上执行，外部调用自动编组。key 为 ChannelOption 或
// SocketOption；其余类型是编程错误（panic）。
func (c *ListenerChannel) SetOption(key any, value any) pkgif.Future {
	return c.submit(func() (any, error) {
		return nil, c.setOption0(key, value)
	})
}

func (c *ListenerChannel) setOption0(key any, value any) error {
	if c.state.kind == stateClosed {
		return ErrIOOnClosedChannel
	}

	switch k := key.(type) {
	case pkgif.ChannelOption:
		return c.opts.setChannelOption(k, value)
	case pkgif.SocketOption:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("socket option (%d,%d): invalid value type %T", k.Level, k.Name, value)
		}
		return c.opts.protocol.Set(k, v)
	default:
		panic(fmt.Sprintf("netloop: unknown option key type %T", key))
	}
}

// GetOption 读取通道选项
func (c *ListenerChannel) GetOption(key any) pkgif.Future {
	return c.submit(func() (any, error) {
		return c.getOption0(key)
	})
}

func (c *ListenerChannel) getOption0(key any) (any, error) {
	if c.state.kind == stateClosed {
		return nil, ErrIOOnClosedChannel
	}

	switch k := key.(type) {
	case pkgif.ChannelOption:
		// 平台监听器句柄内省受能力门控：没有句柄时不支持
		if k == pkgif.OptionPlatformListener {
			if c.handle == nil {
				return nil, fmt.Errorf("%w: no platform listener attached", ErrUnsupportedOperation)
			}
			return pkgif.PlatformListener(c.handle), nil
		}
		return c.opts.getChannelOption(k)
	case pkgif.SocketOption:
		return c.opts.protocol.Get(k)
	default:
		panic(fmt.Sprintf("netloop: unknown option key type %T", key))
	}
}

// ============================================================================
//                              I/O 表面
// ============================================================================

// Write 监听通道不支持写
func (c *ListenerChannel) Write(msg any) pkgif.Future {
	return c.submit(func() (any, error) {
		if c.state.kind == stateClosed {
			return nil, ErrIOOnClosedChannel
		}
		return nil, ErrUnsupportedOperation
	})
}

// Flush 空操作（没有出站缓冲）
func (c *ListenerChannel) Flush() {}

// Read 空操作（自动读取强制开启，接受即投递）
func (c *ListenerChannel) Read() {}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭通道
//
// 幂等；返回的 Future 即 CloseFuture，恰好解析一次。
func (c *ListenerChannel) Close() pkgif.Future {
	c.run(func() {
		c.doClose(nil)
	})
	return c.closePromise
}

// CloseFuture 返回通道关闭 Future
func (c *ListenerChannel) CloseFuture() pkgif.Future {
	return c.closePromise
}

// doClose 唯一关闭路径
//
// 所有终结情形（用户关闭、平台失败、端点解析失败、同步构造失败）
// 都汇入此处：取消平台监听器、以关闭原因失败未决绑定 Promise、
// 解析关闭 Future 恰好一次。reason 为 nil 表示用户主动关闭。
func (c *ListenerChannel) doClose(reason error) {
	if c.state.kind == stateClosed {
		return
	}

	wasActive := c.state.kind == stateActive
	pending := c.state.becomeClosed(reason)
	c.active.Store(false)

	if c.handle != nil {
		// 清理在 cancelled 状态回调到达时完成
		c.handle.Cancel()
	}

	if pending != nil {
		cause := reason
		if cause == nil {
			cause = ErrIOOnClosedChannel
		}
		pending.Fail(cause)
	}

	if reason != nil {
		logger.Warn("监听通道因错误关闭", "channel", c.id, "error", reason)
		c.pipeline.FireError(reason)
	} else {
		logger.Debug("监听通道已关闭", "channel", c.id)
	}

	if wasActive {
		c.metrics.ListenerDown()
		c.pipeline.FireInactive()
	}

	if c.handle == nil {
		c.releaseQueue()
	}

	c.closePromise.Complete(nil)
}

// releaseListener 清理平台监听器句柄（cancelled 回调到达后）
func (c *ListenerChannel) releaseListener() {
	c.handle = nil
	c.releaseQueue()
}

// releaseQueue 关闭回调队列
//
// Close 会等待队列排空，不能阻塞拥有循环。
func (c *ListenerChannel) releaseQueue() {
	if c.queue == nil {
		return
	}
	q := c.queue
	c.queue = nil
	go q.Close()
}
