package config

// ListenerConfig 监听配置
//
// 提供监听通道选项的默认值与平台监听器参数。
// 各项均可在通道创建后通过 SetOption 覆盖。
type ListenerConfig struct {
	// ReuseAddr SO_REUSEADDR 默认值
	ReuseAddr bool `json:"reuse_addr"`

	// ReusePort SO_REUSEPORT 默认值
	ReusePort bool `json:"reuse_port"`

	// AllowLocalEndpointReuse 显式本地端点重用默认值
	AllowLocalEndpointReuse bool `json:"allow_local_endpoint_reuse"`

	// EnablePeerToPeer 对等网络接口包含默认值
	EnablePeerToPeer bool `json:"enable_peer_to_peer"`

	// MultipathServiceType 多路径服务类型默认值
	//
	// 取值: "disabled" / "handover" / "interactive" / "aggregate"
	MultipathServiceType string `json:"multipath_service_type"`

	// Backlog 积压上限：流式限制待处理接受通知数量，
	// 数据报作为每个虚拟连接的入站缓冲深度
	Backlog int `json:"backlog"`

	// AcceptPerSecond 接受速率上限（每秒连接数，0 = 不限制）
	AcceptPerSecond float64 `json:"accept_per_second"`
}

// DefaultListenerConfig 返回默认配置
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		ReuseAddr:               false,
		ReusePort:               false,
		AllowLocalEndpointReuse: false,
		EnablePeerToPeer:        false,
		MultipathServiceType:    "disabled",
		Backlog:                 128,
		AcceptPerSecond:         0,
	}
}
