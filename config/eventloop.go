package config

// EventLoopConfig 事件循环配置
type EventLoopConfig struct {
	// ChildLoops 子通道循环池大小
	//
	// 每个被接受的连接从池中轮转分配一个独立的事件循环；
	// 0 表示使用 CPU 核数。
	ChildLoops int `json:"child_loops"`

	// ShutdownTimeout 循环关闭时排空队列的最长等待时间
	ShutdownTimeout Duration `json:"shutdown_timeout"`
}

// DefaultEventLoopConfig 返回默认配置
func DefaultEventLoopConfig() EventLoopConfig {
	return EventLoopConfig{
		ChildLoops:      0, // 默认 CPU 核数
		ShutdownTimeout: Duration(5e9),
	}
}
