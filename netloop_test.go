package netloop

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-netloop/config"
	pkgif "github.com/dep2p/go-netloop/pkg/interfaces"
	"github.com/dep2p/go-netloop/pkg/types"
)

// echoHandler 回显处理器
type echoHandler struct {
	pkgif.NopHandler
}

func (echoHandler) Read(ch pkgif.Channel, msg any) {
	ch.Write(msg)
	ch.Flush()
}

// echoAcceptor 给每个子通道装配回显处理器
type echoAcceptor struct {
	pkgif.NopHandler
}

func (echoAcceptor) Read(_ pkgif.Channel, msg any) {
	if child, ok := msg.(pkgif.Channel); ok {
		child.Pipeline().AddLast(echoHandler{})
	}
}

func TestService_StartStop(t *testing.T) {
	svc, err := New(WithChildLoops(2))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	// 重复启动拒绝
	assert.Error(t, svc.Start(ctx))

	require.NoError(t, svc.Stop(ctx))
}

func TestService_InvalidOption(t *testing.T) {
	_, err := New(WithChildLoops(-1))
	assert.Error(t, err)

	_, err = New(WithAcceptRateLimit(-5))
	assert.Error(t, err)

	cfg := config.NewConfig()
	cfg.Listener.MultipathServiceType = "bogus"
	_, err = New(WithConfig(cfg))
	assert.Error(t, err, "配置校验在组装前完成")
}

func TestService_EchoRoundTrip(t *testing.T) {
	svc, err := New(WithChildLoops(2))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, svc.Start(ctx))
	defer svc.Stop(context.Background())

	ch := svc.ListenStream()
	ch.Pipeline().AddLast(echoAcceptor{})

	_, err = ch.Activate(types.HostPortTarget("127.0.0.1", 0)).Await(ctx)
	require.NoError(t, err)
	require.NotNil(t, ch.LocalAddr())

	client, err := net.Dial("tcp", ch.LocalAddr().String())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("hello netloop"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello netloop", string(buf[:n]))
	t.Log("✅ 端到端回显完成")
}

func TestService_ListenConvenience(t *testing.T) {
	svc, err := New()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, svc.Start(ctx))
	defer svc.Stop(context.Background())

	ch, err := svc.Listen(ctx, types.HostPortTarget("127.0.0.1", 0))
	require.NoError(t, err)
	assert.True(t, ch.IsActive())

	// 用户提前关闭的通道从登记表移除，Stop 不再处理
	_, err = ch.Close().Await(ctx)
	require.NoError(t, err)
}

func TestService_StopClosesChannels(t *testing.T) {
	svc, err := New()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, svc.Start(ctx))

	ch, err := svc.Listen(ctx, types.HostPortTarget("127.0.0.1", 0))
	require.NoError(t, err)

	require.NoError(t, svc.Stop(ctx))
	assert.False(t, ch.IsActive(), "Stop 关闭所有登记的监听通道")
}
