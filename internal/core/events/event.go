package events

import (
	"github.com/berfenger/hassbridge/internal/core/domain"

	"github.com/spf13/cast"
)

const DEFAULT_DECIMALS = 3

// SensorValueToUpdateEvent converts an entity value into the event published
// on the stream. Unknown values (nil) produce no event.
func SensorValueToUpdateEvent(sensor domain.GenericSensor, value any) (domain.SensorUpdateEvent, bool) {
	mixIn := domain.SensorUpdateEventMixIn{Id: sensor.Id}
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		return domain.TextSensorUpdateEvent{
			SensorUpdateEventMixIn: mixIn,
			Value:                  v,
		}, true
	case bool:
		return domain.TextSensorUpdateEvent{
			SensorUpdateEventMixIn: mixIn,
			Value:                  cast.ToString(v),
		}, true
	}
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return domain.TextSensorUpdateEvent{
			SensorUpdateEventMixIn: mixIn,
			Value:                  cast.ToString(value),
		}, true
	}
	return domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: mixIn,
		Value:                  f,
		Unit:                   sensor.UnitOfMeasurement,
		Decimals:               decimalsFor(sensor.UnitOfMeasurement),
	}, true
}

// SensorValuesToUpdateEvents evaluates every entity against the snapshot.
func SensorValuesToUpdateEvents(entities []domain.SensorEntity, data domain.SensorData) []domain.SensorUpdateEvent {
	var evs []domain.SensorUpdateEvent
	for _, entity := range entities {
		value := entity.Value(data)
		if ev, ok := SensorValueToUpdateEvent(entity.Describe(), value); ok {
			evs = append(evs, ev)
		}
	}
	return evs
}

func BridgeStateUpdateEvent(online bool) domain.BridgeStateUpdateEvent {
	return domain.BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}

func decimalsFor(unit string) uint {
	switch unit {
	case "W", "VA", "var", "%":
		return 0
	case "V", "A", "Hz", "°C":
		return 1
	case "kWh":
		return 3
	default:
		return DEFAULT_DECIMALS
	}
}
