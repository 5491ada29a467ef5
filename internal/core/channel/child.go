package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dep2p/go-netloop/internal/core/eventloop"
	pkgif "github.com/dep2p/go-netloop/pkg/interfaces"
)

// 子通道读缓冲大小
const childReadBuffer = 32 * 1024

// ============================================================================
//                              子通道
// ============================================================================

// ChildChannel 接受连接的子通道
//
// 每个接受的平台连接包装为一个子通道，绑定到循环池轮转分配的
// 循环（独立于监听通道的循环）。自动读取强制开启：注册完成后
// 读泵立即启动，入站数据经拥有循环投递到管道。携带独立的
// 协议选项包实例，与监听侧互不影响。
type ChildChannel struct {
	id   string
	loop *eventloop.Loop
	conn net.Conn

	pipeline *pipeline
	opts     ProtocolOptions
	metrics  *Metrics

	// 循环约束状态
	closed   bool
	outbound []pendingWrite

	// 跨线程可读
	addrs  addrCache
	active atomic.Bool

	// 写批次按 Flush 顺序串行落盘
	writeMu sync.Mutex

	closePromise *eventloop.Promise
}

type pendingWrite struct {
	payload []byte
	p       *eventloop.Promise
}

// 确保实现接口
var _ pkgif.Channel = (*ChildChannel)(nil)

func newChildChannel(conn net.Conn, loop *eventloop.Loop, opts ProtocolOptions, metrics *Metrics) *ChildChannel {
	c := &ChildChannel{
		id:           uuid.NewString(),
		loop:         loop,
		conn:         conn,
		pipeline:     newPipeline(),
		opts:         opts,
		metrics:      metrics,
		closePromise: loop.NewPromise(),
	}
	c.pipeline.bind(c)
	return c
}

// register 将注册任务投递到子通道的循环
//
// fire-and-forget：监听侧投递后即告完成，不保留引用。
// 注册失败（循环已关闭）只关闭子通道自身。
func (c *ChildChannel) register() {
	f := c.loop.Submit(func() (any, error) {
		c.register0()
		return nil, nil
	})
	go func() {
		if _, err := f.Await(context.Background()); err != nil {
			c.metrics.AcceptFailed()
			logger.Warn("子通道注册失败", "child", c.id, "error", err)
			_ = c.conn.Close()
		}
	}()
}

// register0 在拥有循环上完成注册
func (c *ChildChannel) register0() {
	c.addrs.setLocal(c.conn.LocalAddr())
	c.addrs.setRemote(c.conn.RemoteAddr())
	c.active.Store(true)

	c.pipeline.FireActive()
	go c.readPump()
}

// readPump 读泵
//
// 自动读取强制开启：入站数据复制后经拥有循环投递到管道；
// 读错误（含对端关闭）终结子通道。
func (c *ChildChannel) readPump() {
	buf := make([]byte, childReadBuffer)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			msg := make([]byte, n)
			copy(msg, buf[:n])
			c.loop.Execute(func() {
				c.pipeline.FireRead(msg)
			})
		}
		if err != nil {
			c.loop.Execute(func() {
				if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
					c.doClose(nil)
					return
				}
				c.doClose(err)
			})
			return
		}
	}
}

// ID 返回通道唯一标识
func (c *ChildChannel) ID() string {
	return c.id
}

// EventLoop 返回拥有循环
func (c *ChildChannel) EventLoop() pkgif.EventLoop {
	return c.loop
}

// Pipeline 返回通道管道
func (c *ChildChannel) Pipeline() pkgif.Pipeline {
	return c.pipeline
}

// LocalAddr 返回本地地址快照
func (c *ChildChannel) LocalAddr() net.Addr {
	return c.addrs.Local()
}

// RemoteAddr 返回远端地址快照
func (c *ChildChannel) RemoteAddr() net.Addr {
	return c.addrs.Remote()
}

// IsActive 检查通道是否活跃
func (c *ChildChannel) IsActive() bool {
	return c.active.Load()
}

// IsWritable 检查通道当前是否可写
func (c *ChildChannel) IsWritable() bool {
	return c.active.Load()
}

func (c *ChildChannel) run(task func()) {
	if c.loop.InLoop() {
		task()
		return
	}
	c.loop.Execute(task)
}

func (c *ChildChannel) submit(task func() (any, error)) pkgif.Future {
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
//                              选项
// ============================================================================

// SetOption 设置通道选项
//
// 子通道与监听通道共享选项表面形状：自动读取强制开启，
// 通用套接字选项转发到自身的协议选项包。
func (c *ChildChannel) SetOption(key any, value any) pkgif.Future {
	return c.submit(func() (any, error) {
		return nil, c.setOption0(key, value)
	})
}

func (c *ChildChannel) setOption0(key any, value any) error {
	if c.closed {
		return ErrIOOnClosedChannel
	}

	switch k := key.(type) {
	case pkgif.ChannelOption:
		if k == pkgif.OptionAutoRead {
			enabled, ok := value.(bool)
			if !ok {
				return fmt.Errorf("option %s: invalid value type %T", k, value)
			}
			if !enabled {
				return fmt.Errorf("%w: auto-read cannot be disabled", ErrUnsupportedOperation)
			}
			return nil
		}
		return fmt.Errorf("%w: %s on child channel", ErrUnsupportedOperation, k)
	case pkgif.SocketOption:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("socket option (%d,%d): invalid value type %T", k.Level, k.Name, value)
		}
		return c.opts.Set(k, v)
	default:
		panic(fmt.Sprintf("netloop: unknown option key type %T", key))
	}
}

// GetOption 读取通道选项
func (c *ChildChannel) GetOption(key any) pkgif.Future {
	return c.submit(func() (any, error) {
		return c.getOption0(key)
	})
}

func (c *ChildChannel) getOption0(key any) (any, error) {
	if c.closed {
		return nil, ErrIOOnClosedChannel
	}

	switch k := key.(type) {
	case pkgif.ChannelOption:
		if k == pkgif.OptionAutoRead {
			return true, nil
		}
		return nil, fmt.Errorf("%w: %s on child channel", ErrUnsupportedOperation, k)
	case pkgif.SocketOption:
		return c.opts.Get(k)
	default:
		panic(fmt.Sprintf("netloop: unknown option key type %T", key))
	}
}

// ============================================================================
//                              I/O 表面
// ============================================================================

// Write 写出站数据
//
// msg 必须为 []byte；数据进入出站缓冲，Flush 时批量落盘。
// 返回的 Future 在该数据实际写入连接后解析。
func (c *ChildChannel) Write(msg any) pkgif.Future {
	p := c.loop.NewPromise()
	c.run(func() {
		if c.closed {
			p.Fail(ErrIOOnClosedChannel)
			return
		}
		payload, ok := msg.([]byte)
		if !ok {
			p.Fail(fmt.Errorf("%w: write expects []byte, got %T", ErrUnsupportedOperation, msg))
			return
		}
		c.outbound = append(c.outbound, pendingWrite{payload: payload, p: p})
	})
	return p
}

// Flush 冲刷出站缓冲
//
// 批次在后台串行写入连接（按 Flush 顺序），不阻塞拥有循环。
func (c *ChildChannel) Flush() {
	c.run(func() {
		if c.closed || len(c.outbound) == 0 {
			return
		}
		batch := c.outbound
		c.outbound = nil
		go c.writeBatch(batch)
	})
}

func (c *ChildChannel) writeBatch(batch []pendingWrite) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for i, w := range batch {
		if _, err := c.conn.Write(w.payload); err != nil {
			for _, rest := range batch[i:] {
				rest.p.Fail(err)
			}
			c.run(func() {
				c.doClose(err)
			})
			return
		}
		w.p.Complete(nil)
	}
}

// Read 空操作（自动读取强制开启）
func (c *ChildChannel) Read() {}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭子通道
//
// 幂等；返回的 Future 即 CloseFuture，恰好解析一次。
func (c *ChildChannel) Close() pkgif.Future {
	c.run(func() {
		c.doClose(nil)
	})
	return c.closePromise
}

// CloseFuture 返回通道关闭 Future
func (c *ChildChannel) CloseFuture() pkgif.Future {
	return c.closePromise
}

// doClose 唯一关闭路径
//
// reason 为 nil 表示正常关闭（用户主动或对端收尾）。
func (c *ChildChannel) doClose(reason error) {
	if c.closed {
		return
	}
	c.closed = true

	wasActive := c.active.Load()
	c.active.Store(false)

	_ = c.conn.Close()

	for _, w := range c.outbound {
		w.p.Fail(ErrIOOnClosedChannel)
	}
	c.outbound = nil

	if reason != nil {
		logger.Debug("子通道因错误关闭", "child", c.id, "error", reason)
		c.pipeline.FireError(reason)
	}
	if wasActive {
		c.pipeline.FireInactive()
	}

	c.closePromise.Complete(nil)
}
