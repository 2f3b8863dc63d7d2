package metrics

import (
	"github.com/berfenger/hassbridge/internal/core/domain"

	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const namespace = "hassbridge"

// SensorCollector mirrors the sensor updates on the event stream as
// Prometheus metrics.
type SensorCollector struct {
	sensorValue   *prometheus.GaugeVec
	sensorUpdates *prometheus.CounterVec
	bridgeOnline  prometheus.Gauge

	eventStream  *eventstream.EventStream
	subscription *eventstream.Subscription
	logger       *zap.Logger
}

func NewSensorCollector(logger *zap.Logger) *SensorCollector {
	return &SensorCollector{
		sensorValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_value",
			Help:      "Last published numeric value of an inverter sensor",
		}, []string{"sensor", "unit"}),
		sensorUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_updates_total",
			Help:      "Number of sensor updates published",
		}, []string{"sensor"}),
		bridgeOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_online",
			Help:      "Bridge availability (1=online, 0=offline)",
		}),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

func (c *SensorCollector) Describe(ch chan<- *prometheus.Desc) {
	c.sensorValue.Describe(ch)
	c.sensorUpdates.Describe(ch)
	c.bridgeOnline.Describe(ch)
}

func (c *SensorCollector) Collect(ch chan<- prometheus.Metric) {
	c.sensorValue.Collect(ch)
	c.sensorUpdates.Collect(ch)
	c.bridgeOnline.Collect(ch)
}

// Observe records one event. Events that are not sensor updates are ignored.
func (c *SensorCollector) Observe(evt any) {
	switch ev := evt.(type) {
	case domain.FloatSensorUpdateEvent:
		c.sensorValue.WithLabelValues(ev.Id, ev.Unit).Set(ev.Value)
		c.sensorUpdates.WithLabelValues(ev.Id).Inc()
	case domain.TextSensorUpdateEvent:
		// text sensors only export a value when it reads as a number
		if v, err := cast.ToFloat64E(ev.Value); err == nil {
			c.sensorValue.WithLabelValues(ev.Id, "").Set(v)
		}
		c.sensorUpdates.WithLabelValues(ev.Id).Inc()
	case domain.BridgeStateUpdateEvent:
		if ev.Value {
			c.bridgeOnline.Set(1)
		} else {
			c.bridgeOnline.Set(0)
		}
	}
}

func (c *SensorCollector) Subscribe(eventStream *eventstream.EventStream) {
	c.Unsubscribe()
	c.eventStream = eventStream
	c.subscription = eventStream.Subscribe(c.Observe)
	c.logger.Debug("metrics: subscribed to event stream")
}

func (c *SensorCollector) Unsubscribe() {
	if c.eventStream != nil && c.subscription != nil {
		c.eventStream.Unsubscribe(c.subscription)
	}
	c.eventStream = nil
	c.subscription = nil
}
