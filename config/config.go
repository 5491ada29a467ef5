// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.EventLoop.ChildLoops = 8
//	cfg.Listener.ReuseAddr = true
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

import "encoding/json"

// Config 是 netloop 的完整配置结构
//
// 该结构体嵌入了所有组件的子配置，提供统一的配置接口。
// 配置按照功能模块组织：
//   - EventLoop: 事件循环（拥有循环 + 子通道循环池）
//   - Listener: 监听通道默认选项与平台监听器参数
//   - Metrics: 指标收集
type Config struct {
	// EventLoop 事件循环配置
	EventLoop EventLoopConfig `json:"event_loop"`

	// Listener 监听配置
	Listener ListenerConfig `json:"listener"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建带默认值的配置
func NewConfig() *Config {
	return &Config{
		EventLoop: DefaultEventLoopConfig(),
		Listener:  DefaultListenerConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// FromJSON 从 JSON 数据解析配置
//
// 未出现的字段保持默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 将配置序列化为 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
