package metrics

import (
	"time"

	"github.com/berfenger/hassbridge/pkg/goodwe"

	"github.com/prometheus/client_golang/prometheus"
)

// ModbusTimings records the duration of inverter register reads.
type ModbusTimings struct {
	readSeconds *prometheus.HistogramVec
}

func NewModbusTimings() *ModbusTimings {
	return &ModbusTimings{
		readSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "modbus_read_seconds",
			Help:      "Duration of Modbus reads against the inverter",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"fn"}),
	}
}

func (m *ModbusTimings) Describe(ch chan<- *prometheus.Desc) {
	m.readSeconds.Describe(ch)
}

func (m *ModbusTimings) Collect(ch chan<- prometheus.Metric) {
	m.readSeconds.Collect(ch)
}

func (m *ModbusTimings) Instrument() *goodwe.ModbusInstrument {
	return &goodwe.ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			m.readSeconds.WithLabelValues(fnName).Observe(readTime.Seconds())
		},
	}
}
