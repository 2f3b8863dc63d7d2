package metrics

import (
	"strings"
	"testing"

	"github.com/berfenger/hassbridge/internal/core/domain"

	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func floatEvent(id string, value float64, unit string) domain.FloatSensorUpdateEvent {
	return domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: id},
		Value:                  value,
		Unit:                   unit,
	}
}

func TestSensorCollectorFromEventStream(t *testing.T) {

	assert := assert.New(t)

	collector := NewSensorCollector(zap.NewNop())
	es := &eventstream.EventStream{}
	collector.Subscribe(es)

	es.Publish(floatEvent("ppv", 2450, "W"))
	es.Publish(floatEvent("ppv", 2500, "W"))
	es.Publish(floatEvent("e_total", 12873.2, "kWh"))
	es.Publish(domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "work_mode"},
		Value:                  "Normal (On-Grid)",
	})
	es.Publish(domain.BridgeStateUpdateEvent{Value: true})

	assert.Equal(2500.0, testutil.ToFloat64(collector.sensorValue.WithLabelValues("ppv", "W")))
	assert.Equal(12873.2, testutil.ToFloat64(collector.sensorValue.WithLabelValues("e_total", "kWh")))
	assert.Equal(2.0, testutil.ToFloat64(collector.sensorUpdates.WithLabelValues("ppv")))
	assert.Equal(1.0, testutil.ToFloat64(collector.sensorUpdates.WithLabelValues("work_mode")))
	assert.Equal(1.0, testutil.ToFloat64(collector.bridgeOnline))
	// non numeric text is counted but not exported as a value
	assert.Equal(2, testutil.CollectAndCount(collector.sensorValue))

	collector.Unsubscribe()
	es.Publish(floatEvent("ppv", 0, "W"))
	assert.Equal(2500.0, testutil.ToFloat64(collector.sensorValue.WithLabelValues("ppv", "W")))
}

func TestSensorCollectorNumericText(t *testing.T) {

	collector := NewSensorCollector(zap.NewNop())
	collector.Observe(domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "battery_mode"},
		Value:                  "2",
	})
	collector.Observe("not an event")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.sensorValue.WithLabelValues("battery_mode", "")))
}

func TestSensorCollectorRegistry(t *testing.T) {

	collector := NewSensorCollector(zap.NewNop())
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(collector))

	collector.Observe(floatEvent("battery_soc", 64, "%"))

	expected := `
# HELP hassbridge_sensor_value Last published numeric value of an inverter sensor
# TYPE hassbridge_sensor_value gauge
hassbridge_sensor_value{sensor="battery_soc",unit="%"} 64
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "hassbridge_sensor_value")
	assert.NoError(t, err)
}
