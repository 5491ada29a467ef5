package config

import "fmt"

// 多路径服务类型的合法取值
var validMultipathTypes = map[string]struct{}{
	"disabled":    {},
	"handover":    {},
	"interactive": {},
	"aggregate":   {},
}

// Validate 校验配置合法性
//
// 返回第一个发现的配置错误。
func (c *Config) Validate() error {
	if c.EventLoop.ChildLoops < 0 {
		return fmt.Errorf("event_loop.child_loops must be >= 0, got %d", c.EventLoop.ChildLoops)
	}
	if c.EventLoop.ShutdownTimeout < 0 {
		return fmt.Errorf("event_loop.shutdown_timeout must be >= 0, got %s", c.EventLoop.ShutdownTimeout)
	}
	if c.Listener.Backlog <= 0 {
		return fmt.Errorf("listener.backlog must be > 0, got %d", c.Listener.Backlog)
	}
	if c.Listener.AcceptPerSecond < 0 {
		return fmt.Errorf("listener.accept_per_second must be >= 0, got %f", c.Listener.AcceptPerSecond)
	}
	if _, ok := validMultipathTypes[c.Listener.MultipathServiceType]; !ok {
		return fmt.Errorf("listener.multipath_service_type must be one of disabled/handover/interactive/aggregate, got %q",
			c.Listener.MultipathServiceType)
	}
	return nil
}
