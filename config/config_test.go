package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0, cfg.EventLoop.ChildLoops)
	assert.Equal(t, 5*time.Second, cfg.EventLoop.ShutdownTimeout.Duration())
	assert.Equal(t, "disabled", cfg.Listener.MultipathServiceType)
	assert.Equal(t, 128, cfg.Listener.Backlog)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestConfig_FromJSON(t *testing.T) {
	data := []byte(`{
		"event_loop": {"child_loops": 8},
		"listener": {"reuse_addr": true, "multipath_service_type": "handover"}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8, cfg.EventLoop.ChildLoops)
	assert.True(t, cfg.Listener.ReuseAddr)
	assert.Equal(t, "handover", cfg.Listener.MultipathServiceType)

	// 未出现的字段保持默认值
	assert.Equal(t, 128, cfg.Listener.Backlog)
}

func TestConfig_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Listener.AcceptPerSecond = 100

	data, err := cfg.ToJSON()
	require.NoError(t, err)

	parsed, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.Listener.AcceptPerSecond, parsed.Listener.AcceptPerSecond)
}

func TestConfig_ValidateRejects(t *testing.T) {
	cfg := NewConfig()
	cfg.Listener.MultipathServiceType = "turbo"
	assert.Error(t, cfg.Validate(), "未知多路径类型必须拒绝")

	cfg = NewConfig()
	cfg.Listener.Backlog = -1
	assert.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.Listener.AcceptPerSecond = -0.5
	assert.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.EventLoop.ChildLoops = -2
	assert.Error(t, cfg.Validate())
}
