package platform

import (
	"io"
	"net"
	"sync"
	"time"
)

// 单个数据报的最大载荷
const maxDatagramSize = 65535

// 每个虚拟连接的默认入站缓冲深度；写满后丢包（UDP 语义）
const defaultDatagramBacklog = 128

// ============================================================================
//                              解复用器
// ============================================================================

// demux 数据报解复用器
//
// 在共享的 PacketConn 上按远端地址拆分虚拟连接：首个来自某远端的
// 数据报触发一次接受通知，后续数据报进入对应虚拟连接的入站缓冲。
type demux struct {
	pc      net.PacketConn
	owner   *Listener
	backlog int

	mu    sync.Mutex
	conns map[string]*DatagramConn
}

func newDemux(pc net.PacketConn, owner *Listener, backlog int) *demux {
	if backlog <= 0 {
		backlog = defaultDatagramBacklog
	}
	return &demux{
		pc:      pc,
		owner:   owner,
		backlog: backlog,
		conns:   make(map[string]*DatagramConn),
	}
}

// run 读循环
//
// PacketConn 关闭后结束；结束路径与流式接受循环一致。
func (d *demux) run() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, raddr, err := d.pc.ReadFrom(buf)
		if err != nil {
			d.closeAll()
			d.owner.acceptDone(err)
			return
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		key := raddr.String()
		d.mu.Lock()
		conn, known := d.conns[key]
		if !known {
			conn = newDatagramConn(d, raddr)
			d.conns[key] = conn
		}
		d.mu.Unlock()

		if !known {
			d.owner.deliver(conn)
		}
		conn.enqueue(payload)
	}
}

// forget 移除虚拟连接
func (d *demux) forget(raddr net.Addr) {
	d.mu.Lock()
	delete(d.conns, raddr.String())
	d.mu.Unlock()
}

// closeAll 关闭全部虚拟连接
func (d *demux) closeAll() {
	d.mu.Lock()
	conns := make([]*DatagramConn, 0, len(d.conns))
	for _, c := range d.conns {
		conns = append(conns, c)
	}
	d.conns = make(map[string]*DatagramConn)
	d.mu.Unlock()

	for _, c := range conns {
		c.closeInbound()
	}
}

// ============================================================================
//                              虚拟连接
// ============================================================================

// DatagramConn 基于解复用的虚拟数据报连接
//
// 实现 net.Conn：Read 从入站缓冲取数据报（一次一个），
// Write 通过共享 PacketConn 发往固定远端。
type DatagramConn struct {
	dm    *demux
	raddr net.Addr

	inbound chan []byte

	mu            sync.Mutex
	closed        bool
	readDeadline  time.Time
	writeDeadline time.Time
}

// 确保实现接口
var _ net.Conn = (*DatagramConn)(nil)

func newDatagramConn(dm *demux, raddr net.Addr) *DatagramConn {
	return &DatagramConn{
		dm:      dm,
		raddr:   raddr,
		inbound: make(chan []byte, dm.backlog),
	}
}

// enqueue 入站数据报进入缓冲；缓冲满时丢弃（UDP 语义）
//
// 关闭检查与发送在同一临界区内：inbound 的 close 也持同一把锁，
// 保证不会向已关闭的缓冲发送。缓冲发送永不阻塞，持锁无碍。
func (c *DatagramConn) enqueue(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.inbound <- payload:
	default:
		logger.Debug("数据报缓冲已满，丢弃", "remote", c.raddr.String())
	}
}

// Read 读取一个数据报
//
// buf 过小时静默截断（UDP 语义）。
func (c *DatagramConn) Read(buf []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, io.EOF
	}
	deadline := c.readDeadline
	c.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		remain := time.Until(deadline)
		if remain <= 0 {
			return 0, errTimeout{}
		}
		t := time.NewTimer(remain)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case payload, ok := <-c.inbound:
		if !ok {
			return 0, io.EOF
		}
		return copy(buf, payload), nil
	case <-timeout:
		return 0, errTimeout{}
	}
}

// Write 发送一个数据报到固定远端
func (c *DatagramConn) Write(buf []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, net.ErrClosed
	}
	deadline := c.writeDeadline
	c.mu.Unlock()

	if !deadline.IsZero() {
		type deadliner interface{ SetWriteDeadline(time.Time) error }
		if d, ok := c.dm.pc.(deadliner); ok {
			_ = d.SetWriteDeadline(deadline)
		}
	}
	return c.dm.pc.WriteTo(buf, c.raddr)
}

// Close 关闭虚拟连接并从解复用器移除
//
// inbound 在锁内关闭，与 enqueue 的发送互斥。
func (c *DatagramConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.inbound)
	c.mu.Unlock()

	c.dm.forget(c.raddr)
	return nil
}

// closeInbound 解复用器侧关闭（不回调 forget，避免死锁）
func (c *DatagramConn) closeInbound() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.inbound)
}

// LocalAddr 返回共享套接字的本地地址
func (c *DatagramConn) LocalAddr() net.Addr {
	return c.dm.pc.LocalAddr()
}

// RemoteAddr 返回固定远端地址
func (c *DatagramConn) RemoteAddr() net.Addr {
	return c.raddr
}

// SetDeadline 设置读写超时
func (c *DatagramConn) SetDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readDeadline = t
	c.writeDeadline = t
	return nil
}

// SetReadDeadline 设置读超时
func (c *DatagramConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readDeadline = t
	return nil
}

// SetWriteDeadline 设置写超时
func (c *DatagramConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeDeadline = t
	return nil
}

// errTimeout 读超时错误，满足 net.Error
type errTimeout struct{}

func (errTimeout) Error() string   { return "i/o timeout" }
func (errTimeout) Timeout() bool   { return true }
func (errTimeout) Temporary() bool { return true }
