package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-netloop/pkg/types"
)

func TestParameters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Parameters
		wantErr bool
	}{
		{
			name:   "默认流式参数",
			params: Parameters{Kind: types.TransportStream},
		},
		{
			name:   "数据报参数",
			params: Parameters{Kind: types.TransportDatagram, Host: "127.0.0.1", Port: 9000},
		},
		{
			name:    "未知传输种类",
			params:  Parameters{Kind: types.TransportKind(9)},
			wantErr: true,
		},
		{
			name:    "未知多路径类型",
			params:  Parameters{Kind: types.TransportStream, Multipath: types.MultipathServiceType(9)},
			wantErr: true,
		},
		{
			name:    "端口越界",
			params:  Parameters{Kind: types.TransportStream, Port: 70000},
			wantErr: true,
		},
		{
			name:    "数据报不支持 Unix 路径",
			params:  Parameters{Kind: types.TransportDatagram, Path: "/tmp/x.sock"},
			wantErr: true,
		},
		{
			name:    "Unix 路径与主机互斥",
			params:  Parameters{Kind: types.TransportStream, Path: "/tmp/x.sock", Host: "127.0.0.1"},
			wantErr: true,
		},
		{
			name:    "负的接受速率",
			params:  Parameters{Kind: types.TransportStream, AcceptPerSecond: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameters)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParameters_Network(t *testing.T) {
	assert.Equal(t, "tcp", Parameters{Kind: types.TransportStream}.network())
	assert.Equal(t, "udp", Parameters{Kind: types.TransportDatagram}.network())
	assert.Equal(t, "unix", Parameters{Kind: types.TransportStream, Path: "/tmp/x.sock"}.network())
}

func TestParameters_ListenAddress(t *testing.T) {
	p := Parameters{Kind: types.TransportStream, Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", p.listenAddress(p.Host))

	unix := Parameters{Kind: types.TransportStream, Path: "/tmp/x.sock"}
	assert.Equal(t, "/tmp/x.sock", unix.listenAddress(""))
}
