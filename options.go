package netloop

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-netloop/config"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 统一配置
	cfg *config.Config

	// 时钟（测试注入 clock.NewMock()）
	clock clock.Clock

	// 指标注册器
	registry prometheus.Registerer

	// 扩展 Fx 选项
	fxOptions []fx.Option
}

func defaultOptions() *options {
	return &options{
		cfg: config.NewConfig(),
	}
}

func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

// WithConfig 使用完整统一配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		o.cfg = cfg
		return nil
	}
}

// WithChildLoops 设置子通道循环池大小
//
// 0 表示使用 CPU 核数。
func WithChildLoops(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return fmt.Errorf("child loops cannot be negative: %d", n)
		}
		o.cfg.EventLoop.ChildLoops = n
		return nil
	}
}

// WithEndpointReuse 允许本地端点重用
func WithEndpointReuse() Option {
	return func(o *options) error {
		o.cfg.Listener.AllowLocalEndpointReuse = true
		return nil
	}
}

// WithAcceptRateLimit 设置接受速率上限（每秒连接数）
func WithAcceptRateLimit(perSecond float64) Option {
	return func(o *options) error {
		if perSecond < 0 {
			return fmt.Errorf("accept rate cannot be negative: %f", perSecond)
		}
		o.cfg.Listener.AcceptPerSecond = perSecond
		return nil
	}
}

// WithMetrics 启用指标收集
//
// reg 为 nil 时使用 prometheus 默认注册器。
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.cfg.Metrics.Enabled = true
		o.registry = reg
		return nil
	}
}

// WithClock 注入时钟
//
// 测试使用 clock.NewMock() 控制定时任务。
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		if clk == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.clock = clk
		return nil
	}
}

// WithFxOption 追加自定义 Fx 选项（高级用法）
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
