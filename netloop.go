package netloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-netloop/internal/core/channel"
	"github.com/dep2p/go-netloop/internal/core/eventloop"
	pkgif "github.com/dep2p/go-netloop/pkg/interfaces"
	"github.com/dep2p/go-netloop/pkg/lib/log"
	"github.com/dep2p/go-netloop/pkg/types"
)

// Version 当前版本
const Version = "v0.1.0"

var logger = log.Logger("netloop")

// ============================================================================
//                              Service 实现
// ============================================================================

// Service 监听通道运行时
//
// 组装事件循环、循环池与通道工厂；跟踪创建的监听通道，
// Stop 时先关闭全部通道再排空循环。
type Service struct {
	app     *fx.App
	loop    *eventloop.Loop
	group   *eventloop.Group
	factory *channel.Factory

	mu       sync.Mutex
	channels []pkgif.ListenerChannel
	started  bool
}

// New 创建运行时
//
// 组装 Fx 应用但不启动；调用 Start 后方可创建监听通道。
func New(opts ...Option) (*Service, error) {
	o := defaultOptions()
	if err := o.apply(opts...); err != nil {
		return nil, fmt.Errorf("apply options: %w", err)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	s := &Service{}

	modules := []fx.Option{
		fx.Supply(o.cfg),

		eventloop.Module(),
		channel.Module(),

		fx.Populate(&s.loop, &s.group, &s.factory),

		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.NopLogger,
	}
	if o.clock != nil {
		clk := o.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return clk }))
	}
	if o.registry != nil {
		reg := o.registry
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}
	modules = append(modules, o.fxOptions...)

	s.app = fx.New(modules...)
	if err := s.app.Err(); err != nil {
		return nil, fmt.Errorf("assemble runtime: %w", err)
	}
	return s, nil
}

// Start 启动运行时
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("service already started")
	}
	s.started = true
	s.mu.Unlock()

	if err := s.app.Start(ctx); err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}
	logger.Info("netloop 运行时已启动", "version", Version, "childLoops", s.group.Size())
	return nil
}

// Stop 停止运行时
//
// 先关闭所有监听通道并等待关闭 Future，再停止 Fx 应用（排空循环）。
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	channels := s.channels
	s.channels = nil
	s.mu.Unlock()

	for _, ch := range channels {
		f := ch.Close()
		if _, err := f.Await(ctx); err != nil {
			return fmt.Errorf("close channel %s: %w", ch.ID(), err)
		}
	}

	if err := s.app.Stop(ctx); err != nil {
		return fmt.Errorf("stop runtime: %w", err)
	}
	logger.Info("netloop 运行时已停止")
	return nil
}

// ListenStream 创建流式监听通道
//
// 通道绑定到拥有循环；调用 Activate 开始监听。
func (s *Service) ListenStream() pkgif.ListenerChannel {
	ch := s.factory.NewStreamListener()
	s.track(ch)
	return ch
}

// ListenDatagram 创建数据报监听通道
func (s *Service) ListenDatagram() pkgif.ListenerChannel {
	ch := s.factory.NewDatagramListener()
	s.track(ch)
	return ch
}

// Listen 创建流式监听通道并等待激活完成
//
// 便捷方法：等价于 ListenStream + Activate + Await。
func (s *Service) Listen(ctx context.Context, target types.BindTarget) (pkgif.ListenerChannel, error) {
	ch := s.ListenStream()
	if _, err := ch.Activate(target).Await(ctx); err != nil {
		return nil, fmt.Errorf("activate %s: %w", target, err)
	}
	return ch, nil
}

// track 登记通道，Stop 时统一关闭
func (s *Service) track(ch pkgif.ListenerChannel) {
	s.mu.Lock()
	s.channels = append(s.channels, ch)
	s.mu.Unlock()

	// 用户提前关闭的通道从登记表移除
	ch.CloseFuture().OnComplete(func(any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range s.channels {
			if c == ch {
				s.channels = append(s.channels[:i], s.channels[i+1:]...)
				return
			}
		}
	})
}
