package chat

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Connections   prometheus.Gauge
	Events        *prometheus.CounterVec
	Broadcasts    prometheus.Counter
	Deliveries    prometheus.Counter
	DroppedFrames prometheus.Counter
	RelayedFrames *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			Connections: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "gvchat_ws_connections",
				Help: "Current number of open WebSocket connections",
			}),
			Events: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "gvchat_events_total",
				Help: "Inbound chat events by name and outcome",
			}, []string{"event", "outcome"}),
			Broadcasts: promauto.NewCounter(prometheus.CounterOpts{
				Name: "gvchat_broadcasts_total",
				Help: "Room broadcasts performed on this node",
			}),
			Deliveries: promauto.NewCounter(prometheus.CounterOpts{
				Name: "gvchat_deliveries_total",
				Help: "Frames queued to connections by broadcasts",
			}),
			DroppedFrames: promauto.NewCounter(prometheus.CounterOpts{
				Name: "gvchat_dropped_frames_total",
				Help: "Frames dropped because a send queue was full",
			}),
			RelayedFrames: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "gvchat_relayed_frames_total",
				Help: "Room frames exchanged with other gateway nodes",
			}, []string{"direction"}),
		}
	})
	return metricsInstance
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.Connections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.Connections.Dec()
}

func (m *Metrics) Event(event string, o Outcome) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(event, o.String()).Inc()
}

func (m *Metrics) Broadcast(delivered int) {
	if m == nil {
		return
	}
	m.Broadcasts.Inc()
	m.Deliveries.Add(float64(delivered))
}

func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.DroppedFrames.Inc()
}

func (m *Metrics) Relayed(direction string) {
	if m == nil {
		return
	}
	m.RelayedFrames.WithLabelValues(direction).Inc()
}
