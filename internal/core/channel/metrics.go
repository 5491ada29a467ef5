package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================================
//                              指标收集
// ============================================================================

// Metrics 通道指标
//
// nil 接收者安全：未启用指标时所有方法为空操作。
type Metrics struct {
	accepted        prometheus.Counter
	acceptFailures  prometheus.Counter
	activeListeners prometheus.Gauge
}

// NewMetrics 创建并注册通道指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "netloop",
			Subsystem: "listener",
			Name:      "accepted_connections_total",
			Help:      "接受的入站连接总数",
		}),
		acceptFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "netloop",
			Subsystem: "listener",
			Name:      "accept_failures_total",
			Help:      "接受路径失败总数（含子通道注册失败）",
		}),
		activeListeners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "netloop",
			Subsystem: "listener",
			Name:      "active_listeners",
			Help:      "当前活跃的监听通道数",
		}),
	}
}

// ConnAccepted 记录一次接受
func (m *Metrics) ConnAccepted() {
	if m == nil {
		return
	}
	m.accepted.Inc()
}

// AcceptFailed 记录一次接受路径失败
func (m *Metrics) AcceptFailed() {
	if m == nil {
		return
	}
	m.acceptFailures.Inc()
}

// ListenerUp 记录监听通道激活
func (m *Metrics) ListenerUp() {
	if m == nil {
		return
	}
	m.activeListeners.Inc()
}

// ListenerDown 记录监听通道失活
func (m *Metrics) ListenerDown() {
	if m == nil {
		return
	}
	m.activeListeners.Dec()
}
