package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-netloop/config"
	"github.com/dep2p/go-netloop/internal/core/eventloop"
	"github.com/dep2p/go-netloop/pkg/types"
)

// Config 通道配置
//
// 提供监听通道选项的初始值；各项均可在通道创建后通过 SetOption 覆盖。
type Config struct {
	// ReuseAddr SO_REUSEADDR 初始值
	ReuseAddr bool

	// ReusePort SO_REUSEPORT 初始值
	ReusePort bool

	// AllowLocalEndpointReuse 显式本地端点重用初始值
	AllowLocalEndpointReuse bool

	// EnablePeerToPeer 对等网络接口包含初始值
	EnablePeerToPeer bool

	// Multipath 多路径服务类型初始值
	Multipath types.MultipathServiceType

	// Backlog 平台监听器连接队列大小
	Backlog int

	// AcceptPerSecond 接受速率上限（每秒连接数，0 = 不限制）
	AcceptPerSecond float64
}

// NewConfig 创建默认配置
func NewConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建通道配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Config{
		ReuseAddr:               cfg.Listener.ReuseAddr,
		ReusePort:               cfg.Listener.ReusePort,
		AllowLocalEndpointReuse: cfg.Listener.AllowLocalEndpointReuse,
		EnablePeerToPeer:        cfg.Listener.EnablePeerToPeer,
		Multipath:               parseMultipath(cfg.Listener.MultipathServiceType),
		Backlog:                 cfg.Listener.Backlog,
		AcceptPerSecond:         cfg.Listener.AcceptPerSecond,
	}
}

// parseMultipath 解析多路径服务类型配置值
//
// 未识别的取值回落为 disabled（配置校验已在 config.Validate 完成）。
func parseMultipath(s string) types.MultipathServiceType {
	switch s {
	case "handover":
		return types.MultipathHandover
	case "interactive":
		return types.MultipathInteractive
	case "aggregate":
		return types.MultipathAggregate
	default:
		return types.MultipathDisabled
	}
}

// ============================================================================
//                              通道工厂
// ============================================================================

// Factory 监听通道工厂
//
// 持有拥有循环、子通道循环池与通道配置；每次 Listen 创建一条
// 绑定到拥有循环的监听通道。
type Factory struct {
	loop    *eventloop.Loop
	group   *eventloop.Group
	cfg     Config
	metrics *Metrics
}

// NewFactory 创建通道工厂
//
// metrics 可为 nil（未启用指标收集）。
func NewFactory(loop *eventloop.Loop, group *eventloop.Group, cfg Config, metrics *Metrics) *Factory {
	return &Factory{
		loop:    loop,
		group:   group,
		cfg:     cfg,
		metrics: metrics,
	}
}

// NewStreamListener 创建流式监听通道
func (f *Factory) NewStreamListener() *ListenerChannel {
	return NewListenerChannel(f.loop, f.group, types.TransportStream, f.cfg, f.metrics)
}

// NewDatagramListener 创建数据报监听通道
func (f *Factory) NewDatagramListener() *ListenerChannel {
	return NewListenerChannel(f.loop, f.group, types.TransportDatagram, f.cfg, f.metrics)
}

// ============================================================================
//                              Fx 模块
// ============================================================================

// Params 通道工厂依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config        `optional:"true"`
	Registry   prometheus.Registerer `optional:"true"`

	Loop  *eventloop.Loop
	Group *eventloop.Group
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("channel",
		fx.Provide(ProvideFactory),
	)
}

// ProvideFactory 提供监听通道工厂
func ProvideFactory(p Params) *Factory {
	cfg := ConfigFromUnified(p.UnifiedCfg)

	var metrics *Metrics
	if p.UnifiedCfg != nil && p.UnifiedCfg.Metrics.Enabled {
		reg := p.Registry
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		metrics = NewMetrics(reg)
	}
	return NewFactory(p.Loop, p.Group, cfg, metrics)
}
