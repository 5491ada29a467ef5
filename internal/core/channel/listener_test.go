package channel

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-netloop/internal/core/eventloop"
	"github.com/dep2p/go-netloop/internal/core/platform"
	pkgif "github.com/dep2p/go-netloop/pkg/interfaces"
	"github.com/dep2p/go-netloop/pkg/types"
)

func newTestRig(t *testing.T) (*eventloop.Loop, *eventloop.Group) {
	t.Helper()
	loop := eventloop.NewLoop(nil)
	group := eventloop.NewGroup(2, nil)
	t.Cleanup(func() {
		_ = loop.Close()
		_ = group.Close(context.Background())
	})
	return loop, group
}

func newTestListener(t *testing.T, kind types.TransportKind) *ListenerChannel {
	t.Helper()
	loop, group := newTestRig(t)
	return NewListenerChannel(loop, group, kind, NewConfig(), nil)
}

func localTarget() types.BindTarget {
	return types.HostPortTarget("127.0.0.1", 0)
}

// childCollector 从监听管道的读事件收集子通道
type childCollector struct {
	pkgif.NopHandler
	children chan pkgif.Channel
}

func newChildCollector() *childCollector {
	return &childCollector{children: make(chan pkgif.Channel, 4)}
}

func (c *childCollector) Read(_ pkgif.Channel, msg any) {
	if child, ok := msg.(pkgif.Channel); ok {
		c.children <- child
	}
}

func TestListenerChannel_ImplementsInterface(t *testing.T) {
	var _ pkgif.ListenerChannel = (*ListenerChannel)(nil)
	var _ pkgif.Channel = (*ChildChannel)(nil)
}

func TestListenerChannel_ActivateResolvesLocalAddr(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := ch.Activate(localTarget()).Await(ctx)
	require.NoError(t, err)

	assert.True(t, ch.IsActive())

	// 请求端口 0 时本地地址携带平台分配的具体端口
	addr := ch.LocalAddr()
	require.NotNil(t, addr)
	tcpAddr, ok := addr.(*net.TCPAddr)
	require.True(t, ok)
	assert.NotZero(t, tcpAddr.Port)
	t.Log("✅ 绑定完成解析出平台分配端口")
}

func TestListenerChannel_SingleInFlightActivation(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	// 在拥有循环上连续发起两次激活：第二次必须立即拒绝
	type pair struct{ f1, f2 pkgif.Future }
	got := make(chan pair, 1)
	ch.loop.Execute(func() {
		f1 := ch.Activate(localTarget())
		f2 := ch.Activate(localTarget())
		got <- pair{f1, f2}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	p := <-got
	_, err := p.f2.Await(ctx)
	assert.ErrorIs(t, err, ErrActivationPending, "在途激活期间的第二次激活必须拒绝")

	_, err = p.f1.Await(ctx)
	assert.NoError(t, err, "首次激活不受影响")
}

func TestListenerChannel_ActivateWhenActive(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := ch.Activate(localTarget()).Await(ctx)
	require.NoError(t, err)

	_, err = ch.Activate(localTarget()).Await(ctx)
	assert.ErrorIs(t, err, ErrAlreadyActivated)
}

func TestListenerChannel_ActivateAfterClose(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := ch.Close().Await(ctx)
	require.NoError(t, err)

	_, err = ch.Activate(localTarget()).Await(ctx)
	assert.ErrorIs(t, err, ErrIOOnClosedChannel, "关闭是吸收态")
}

func TestListenerChannel_CloseIdempotentExactlyOnce(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := ch.Activate(localTarget()).Await(ctx)
	require.NoError(t, err)

	f1 := ch.Close()
	f2 := ch.Close()
	assert.Same(t, f1.(*eventloop.Promise), f2.(*eventloop.Promise), "Close 返回同一个关闭 Future")
	assert.Same(t, f1.(*eventloop.Promise), ch.CloseFuture().(*eventloop.Promise))

	_, err = f1.Await(ctx)
	require.NoError(t, err)
	assert.False(t, ch.IsActive())
	t.Log("✅ 关闭 Future 恰好解析一次")
}

func TestListenerChannel_CloseDuringActivation(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)

	// 同一个循环任务内激活后立即关闭：绑定 Promise 以关闭原因失败
	got := make(chan pkgif.Future, 1)
	ch.loop.Execute(func() {
		f := ch.Activate(localTarget())
		ch.Close()
		got <- f
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := (<-got).Await(ctx)
	assert.ErrorIs(t, err, ErrIOOnClosedChannel, "关闭期间的未决绑定 Promise 必须失败")

	_, err = ch.CloseFuture().Await(ctx)
	assert.NoError(t, err)
}

func TestListenerChannel_BindFailureClosesChannel(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 不可路由的地址触发平台绑定失败
	_, err := ch.Activate(types.HostPortTarget("203.0.113.1", 1)).Await(ctx)
	require.Error(t, err)

	var perr *PlatformError
	assert.ErrorAs(t, err, &perr, "平台失败包装为 PlatformError")

	_, err = ch.CloseFuture().Await(ctx)
	assert.NoError(t, err, "平台失败经由通道关闭路径")
	assert.False(t, ch.IsActive())
}

func TestListenerChannel_WriteUnsupported(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := ch.Write([]byte("x")).Await(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedOperation, "监听通道不支持写")

	// Flush / Read 是空操作
	ch.Flush()
	ch.Read()
}

func TestListenerChannel_WriteAfterClose(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := ch.Close().Await(ctx)
	require.NoError(t, err)

	_, err = ch.Write([]byte("x")).Await(ctx)
	assert.ErrorIs(t, err, ErrIOOnClosedChannel, "关闭后写以通道已关闭错误拒绝")
}

func TestListenerChannel_RemoteAddrAndWritability(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	assert.Nil(t, ch.RemoteAddr(), "监听通道没有远端对等方")
	assert.True(t, ch.IsWritable(), "监听通道恒为可写")
}

func TestListenerChannel_OptionMarshaledFromForeignGoroutine(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// 测试 goroutine 不是拥有循环
	require.False(t, ch.loop.InLoop())

	_, err := ch.SetOption(pkgif.OptionReuseAddr, true).Await(ctx)
	require.NoError(t, err)

	v, err := ch.GetOption(pkgif.OptionReuseAddr).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, v)
	t.Log("✅ 外部 goroutine 的选项操作编组到拥有循环")
}

func TestListenerChannel_ReuseFlagsFoldAtActivation(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// 只设置 reuse-port；折叠后平台看到单一端点重用标志
	_, err := ch.SetOption(pkgif.OptionReusePort, true).Await(ctx)
	require.NoError(t, err)

	_, err = ch.Activate(localTarget()).Await(ctx)
	require.NoError(t, err)

	v, err := ch.GetOption(pkgif.OptionPlatformListener).Await(ctx)
	require.NoError(t, err)
	handle, ok := v.(pkgif.PlatformListener)
	require.True(t, ok)

	params := handle.(*platform.Listener).Parameters()
	assert.True(t, params.AllowEndpointReuse, "reuse-addr/reuse-port/显式重用折叠为单一平台标志")
}

func TestListenerChannel_AutoReadMandatory(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := ch.SetOption(pkgif.OptionAutoRead, false).Await(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedOperation, "自动读取不可关闭")

	_, err = ch.SetOption(pkgif.OptionAutoRead, true).Await(ctx)
	assert.NoError(t, err)

	v, err := ch.GetOption(pkgif.OptionAutoRead).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestListenerChannel_OptionsAfterClose(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := ch.Close().Await(ctx)
	require.NoError(t, err)

	_, err = ch.SetOption(pkgif.OptionReuseAddr, true).Await(ctx)
	assert.ErrorIs(t, err, ErrIOOnClosedChannel)

	_, err = ch.GetOption(pkgif.OptionReuseAddr).Await(ctx)
	assert.ErrorIs(t, err, ErrIOOnClosedChannel)
}

func TestListenerChannel_PlatformListenerIntrospection(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// 激活前没有句柄：能力门控
	_, err := ch.GetOption(pkgif.OptionPlatformListener).Await(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	// 句柄只读
	_, err = ch.SetOption(pkgif.OptionPlatformListener, nil).Await(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = ch.Activate(localTarget()).Await(ctx)
	require.NoError(t, err)

	v, err := ch.GetOption(pkgif.OptionPlatformListener).Await(ctx)
	require.NoError(t, err)
	handle := v.(pkgif.PlatformListener)
	assert.Equal(t, types.ListenerReady, handle.State())
	assert.NotNil(t, handle.Endpoint())
}

func TestListenerChannel_GenericSocketOptions(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	opt := pkgif.SocketOption{Level: 6, Name: 1} // IPPROTO_TCP / TCP_NODELAY
	_, err := ch.SetOption(opt, 1).Await(ctx)
	require.NoError(t, err)

	v, err := ch.GetOption(opt).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// 未设置过的选项
	_, err = ch.GetOption(pkgif.SocketOption{Level: 1, Name: 99}).Await(ctx)
	assert.ErrorIs(t, err, ErrSocketOptionUnset)
}

func TestListenerChannel_AdoptPreconfigured(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	ln, err := platform.New(platform.Parameters{Kind: types.TransportStream, Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err = ch.AdoptPreconfigured(ln).Await(ctx)
	require.NoError(t, err)

	assert.True(t, ch.IsActive())
	assert.NotNil(t, ch.LocalAddr())
	t.Log("✅ 收养 setup 状态的监听器完成激活")
}

func TestListenerChannel_AdoptStartedListenerRejected(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	ln, err := platform.New(platform.Parameters{Kind: types.TransportStream, Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)

	q := platform.NewQueue()
	defer q.Close()
	require.NoError(t, ln.Start(q))
	defer ln.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err = ch.AdoptPreconfigured(ln).Await(ctx)
	assert.ErrorIs(t, err, ErrNotPreConfigured, "已启动的监听器不可收养")

	// 无副作用：通道仍可正常激活
	_, err = ch.Activate(localTarget()).Await(ctx)
	assert.NoError(t, err)
}

func TestListenerChannel_ChildHandoff(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	collector := newChildCollector()
	ch.Pipeline().AddLast(collector)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := ch.Activate(localTarget()).Await(ctx)
	require.NoError(t, err)

	client, err := net.Dial("tcp", ch.LocalAddr().String())
	require.NoError(t, err)
	defer client.Close()

	var child pkgif.Channel
	select {
	case child = <-collector.children:
	case <-time.After(5 * time.Second):
		t.Fatal("等待子通道移交超时")
	}

	// 子通道绑定到循环池的循环，独立于监听循环
	assert.NotSame(t, ch.loop, child.EventLoop().(*eventloop.Loop), "子通道不在监听通道的循环上")

	// 等待子通道完成注册
	require.Eventually(t, child.IsActive, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, client.LocalAddr().String(), child.RemoteAddr().String())

	// 子通道写回客户端；Write 的 Future 在 Flush 落盘后解析
	wf := child.Write([]byte("pong"))
	child.Flush()
	_, err = wf.Await(ctx)
	require.NoError(t, err)

	buf := make([]byte, 16)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(3*time.Second)))
	n, rerr := client.Read(buf)
	require.NoError(t, rerr)
	assert.Equal(t, "pong", string(buf[:n]))
	t.Log("✅ 子通道移交并可写回对端")
}

func TestListenerChannel_ChildClosesOnPeerDisconnect(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	collector := newChildCollector()
	ch.Pipeline().AddLast(collector)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := ch.Activate(localTarget()).Await(ctx)
	require.NoError(t, err)

	client, err := net.Dial("tcp", ch.LocalAddr().String())
	require.NoError(t, err)

	child := <-collector.children
	require.Eventually(t, child.IsActive, 3*time.Second, 10*time.Millisecond)

	// 对端断开后子通道关闭，监听通道不受影响
	require.NoError(t, client.Close())
	_, err = child.CloseFuture().Await(ctx)
	require.NoError(t, err)
	assert.False(t, child.IsActive())
	assert.True(t, ch.IsActive(), "子通道关闭不影响监听通道")
}

func TestListenerChannel_AcceptAfterCloseStillHandsOff(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)

	collector := newChildCollector()
	ch.Pipeline().AddLast(collector)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := ch.Activate(localTarget()).Await(ctx)
	require.NoError(t, err)

	_, err = ch.Close().Await(ctx)
	require.NoError(t, err)

	// 关闭后、取消确认前到达的接受通知仍然移交
	server, client := net.Pipe()
	defer client.Close()
	ch.loop.Execute(func() {
		ch.onAccepted(server)
	})

	select {
	case child := <-collector.children:
		require.Eventually(t, child.IsActive, 3*time.Second, 10*time.Millisecond)
		_, err = child.Close().Await(ctx)
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("关闭竞争下的接受通知未被移交")
	}
	t.Log("✅ 子通道生命周期独立于监听通道")
}

func TestListenerChannel_DatagramActivate(t *testing.T) {
	ch := newTestListener(t, types.TransportDatagram)
	defer ch.Close()

	collector := newChildCollector()
	ch.Pipeline().AddLast(collector)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := ch.Activate(localTarget()).Await(ctx)
	require.NoError(t, err)

	udpAddr, ok := ch.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)
	assert.NotZero(t, udpAddr.Port)

	client, err := net.Dial("udp", ch.LocalAddr().String())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)

	select {
	case child := <-collector.children:
		require.Eventually(t, child.IsActive, 3*time.Second, 10*time.Millisecond)
	case <-time.After(5 * time.Second):
		t.Fatal("等待数据报子通道超时")
	}
}

func TestListenerChannel_UnixPathActivate(t *testing.T) {
	ch := newTestListener(t, types.TransportStream)
	defer ch.Close()

	path := t.TempDir() + "/echo.sock"

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := ch.Activate(types.UnixPathTarget(path)).Await(ctx)
	require.NoError(t, err)

	addr, ok := ch.LocalAddr().(*net.UnixAddr)
	require.True(t, ok)
	assert.Equal(t, path, addr.Name)

	client, err := net.Dial("unix", path)
	require.NoError(t, err)
	client.Close()
}
