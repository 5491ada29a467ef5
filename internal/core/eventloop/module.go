package eventloop

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-netloop/config"
)

// Config 事件循环配置
type Config struct {
	// ChildLoops 子通道循环池大小（0 = CPU 核数）
	ChildLoops int

	// ShutdownTimeout 关闭时排空队列的最长等待时间
	ShutdownTimeout time.Duration
}

// NewConfig 创建默认配置
func NewConfig() Config {
	return Config{
		ChildLoops:      0,
		ShutdownTimeout: 5 * time.Second,
	}
}

// ConfigFromUnified 从统一配置创建事件循环配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return NewConfig()
	}
	return Config{
		ChildLoops:      cfg.EventLoop.ChildLoops,
		ShutdownTimeout: cfg.EventLoop.ShutdownTimeout.Duration(),
	}
}

// Params 事件循环依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
}

// Output Fx 输出
type Output struct {
	fx.Out

	// Loop 监听通道的拥有循环
	Loop *Loop

	// Group 子通道循环池
	Group *Group
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("eventloop",
		fx.Provide(ProvideLoops),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideLoops 提供拥有循环与子通道循环池
func ProvideLoops(p Params) Output {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return Output{
		Loop:  NewLoop(clk),
		Group: NewGroup(cfg.ChildLoops, clk),
	}
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, p Params, loop *Loop, group *Group) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if cfg.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.ShutdownTimeout)
				defer cancel()
			}
			return multierr.Append(
				loop.CloseContext(ctx),
				group.Close(ctx),
			)
		},
	})
}
