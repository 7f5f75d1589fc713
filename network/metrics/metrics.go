// Package metrics 会话层的prometheus指标，nil的*Metrics可以安全调用
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

type Metrics struct {
	sessions        prometheus.Gauge
	packets         *prometheus.CounterVec
	bytes           *prometheus.CounterVec
	unknown         *prometheus.CounterVec
	handlerFailures *prometheus.CounterVec
	teardownErrors  *prometheus.CounterVec
}

// New 注册到reg，reg为nil时使用prometheus.DefaultRegisterer
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of live client sessions.",
		}),
		packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "packets_total",
			Help:      "Packets crossing the session layer.",
		}, []string{"direction"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "bytes_total",
			Help:      "Wire bytes crossing the session layer.",
		}, []string{"direction"}),
		unknown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "unknown_opcodes_total",
			Help:      "Packets whose opcode is outside the recognized set.",
		}, []string{"direction"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "handler_failures_total",
			Help:      "Opcode handler errors and recovered panics.",
		}, []string{"handler"}),
		teardownErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "teardown_errors_total",
			Help:      "Errors logged by lifecycle hooks and teardown steps.",
		}, []string{"step"}),
	}
	for _, c := range []prometheus.Collector{m.sessions, m.packets, m.bytes, m.unknown, m.handlerFailures, m.teardownErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

func (m *Metrics) Packet(direction string, wireBytes int) {
	if m != nil {
		m.packets.WithLabelValues(direction).Inc()
		m.bytes.WithLabelValues(direction).Add(float64(wireBytes))
	}
}

// Bytes 只统计字节，用于不分帧的读
func (m *Metrics) Bytes(direction string, n int) {
	if m != nil {
		m.bytes.WithLabelValues(direction).Add(float64(n))
	}
}

func (m *Metrics) Unknown(direction string) {
	if m != nil {
		m.unknown.WithLabelValues(direction).Inc()
	}
}

func (m *Metrics) HandlerFailure(handler string) {
	if m != nil {
		m.handlerFailures.WithLabelValues(handler).Inc()
	}
}

func (m *Metrics) TeardownError(step string) {
	if m != nil {
		m.teardownErrors.WithLabelValues(step).Inc()
	}
}
