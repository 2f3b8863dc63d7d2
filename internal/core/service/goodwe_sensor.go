package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/berfenger/hassbridge/internal/core/domain"
	"github.com/berfenger/hassbridge/pkg/goodwe"
)

const (
	GOODWE_DOMAIN = "goodwe"

	// SENSOR_ID_BATTERY_SOC is the inverter battery state of charge
	SENSOR_ID_BATTERY_SOC = "battery_soc"
	UNUSED_SENSOR_PREFIX  = "xx"
)

// ValueRule corrects a freshly observed reading before it is shown.
type ValueRule int

const (
	// ValueRuleIdentity passes the observed value through.
	ValueRuleIdentity ValueRule = iota
	// ValueRuleSuppressFalsyOnTotal keeps the previous value when a "total"
	// counter reports an empty or zero reading.
	ValueRuleSuppressFalsyOnTotal
)

func (r ValueRule) Apply(sensorId string, prev, value any) any {
	switch r {
	case ValueRuleSuppressFalsyOnTotal:
		if strings.Contains(sensorId, "total") && isFalsy(value) {
			return prev
		}
		return value
	case ValueRuleIdentity:
		return value
	default:
		panic(fmt.Sprintf("unknown value rule %d", int(r)))
	}
}

func (r ValueRule) String() string {
	switch r {
	case ValueRuleIdentity:
		return "identity"
	case ValueRuleSuppressFalsyOnTotal:
		return "suppress_falsy_on_total"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// DisplayTemplate holds the entity metadata derived from a sensor unit.
type DisplayTemplate struct {
	Key         string
	DeviceClass string
	StateClass  string
	Unit        string
	Rule        ValueRule
}

var displayTemplates = map[string]DisplayTemplate{
	"A": {
		Key:         "A",
		DeviceClass: domain.DEVICE_CLASS_CURRENT,
		StateClass:  domain.STATE_CLASS_MEASUREMENT,
		Unit:        "A",
	},
	"V": {
		Key:         "V",
		DeviceClass: domain.DEVICE_CLASS_VOLTAGE,
		StateClass:  domain.STATE_CLASS_MEASUREMENT,
		Unit:        "V",
	},
	"W": {
		Key:         "W",
		DeviceClass: domain.DEVICE_CLASS_POWER,
		StateClass:  domain.STATE_CLASS_MEASUREMENT,
		Unit:        "W",
	},
	"kWh": {
		Key:         "kWh",
		DeviceClass: domain.DEVICE_CLASS_ENERGY,
		StateClass:  domain.STATE_CLASS_TOTAL_INCREASING,
		Unit:        "kWh",
		Rule:        ValueRuleSuppressFalsyOnTotal,
	},
	"C": {
		Key:         "C",
		DeviceClass: domain.DEVICE_CLASS_TEMPERATURE,
		StateClass:  domain.STATE_CLASS_MEASUREMENT,
		Unit:        "°C",
	},
	"Hz": {
		Key:         "Hz",
		DeviceClass: domain.DEVICE_CLASS_FREQUENCY,
		StateClass:  domain.STATE_CLASS_MEASUREMENT,
		Unit:        "Hz",
	},
	"%": {
		Key:        "%",
		StateClass: domain.STATE_CLASS_MEASUREMENT,
		Unit:       "%",
	},
}

// DiagTemplate is used for sensors whose unit has no template.
var DiagTemplate = DisplayTemplate{
	Key:        "_",
	StateClass: domain.STATE_CLASS_MEASUREMENT,
}

var mainSensors = map[string]bool{
	"ppv":                   true,
	"house_consumption":     true,
	"active_power":          true,
	SENSOR_ID_BATTERY_SOC:   true,
	"e_day":                 true,
	"e_total":               true,
	"meter_e_total_exp":     true,
	"meter_e_total_imp":     true,
	"e_bat_charge_total":    true,
	"e_bat_discharge_total": true,
}

var sensorKindIcons = map[goodwe.SensorKind]string{
	goodwe.SensorKindPV:   "mdi:solar-power",
	goodwe.SensorKindAC:   "mdi:power-plug-outline",
	goodwe.SensorKindUPS:  "mdi:power-plug-off-outline",
	goodwe.SensorKindBAT:  "mdi:battery-high",
	goodwe.SensorKindGRID: "mdi:transmission-tower",
}

func TemplateForUnit(unit string) DisplayTemplate {
	if tpl, ok := displayTemplates[unit]; ok {
		return tpl
	}
	return DiagTemplate
}

func IsMainSensor(sensorId string) bool {
	return mainSensors[sensorId]
}

func IconForKind(kind goodwe.SensorKind) string {
	return sensorKindIcons[kind]
}

// InverterSensor is the entity published for a single inverter sensor.
type InverterSensor struct {
	sensor         goodwe.Sensor
	device         domain.Device
	uniqueId       string
	template       DisplayTemplate
	unit           string
	deviceClass    string
	entityCategory string
	icon           string

	mu       sync.Mutex
	previous any
}

func NewInverterSensor(device domain.Device, serialNumber string, sensor goodwe.Sensor) *InverterSensor {
	tpl := TemplateForUnit(sensor.Unit)
	s := &InverterSensor{
		sensor:      sensor,
		device:      device,
		uniqueId:    fmt.Sprintf("%s-%s-%s", GOODWE_DOMAIN, sensor.Id, serialNumber),
		template:    tpl,
		unit:        tpl.Unit,
		deviceClass: tpl.DeviceClass,
		icon:        IconForKind(sensor.Kind),
	}
	if s.unit == "" {
		s.unit = sensor.Unit
	}
	if !IsMainSensor(sensor.Id) {
		s.entityCategory = domain.ENTITY_CLASS_DIAGNOSTIC
	}
	// the inverter SoC is the main battery sensor of the device
	if sensor.Id == SENSOR_ID_BATTERY_SOC {
		s.deviceClass = domain.DEVICE_CLASS_BATTERY
	}
	return s
}

// SetupInverterSensors builds the entities for every sensor reported by the
// inverter, skipping the unused ones.
func SetupInverterSensors(device domain.Device, serialNumber string, sensors []goodwe.Sensor) []*InverterSensor {
	var entities []*InverterSensor
	for _, sensor := range sensors {
		if strings.HasPrefix(sensor.Id, UNUSED_SENSOR_PREFIX) {
			continue
		}
		entities = append(entities, NewInverterSensor(device, serialNumber, sensor))
	}
	return entities
}

func (s *InverterSensor) SensorId() string {
	return s.sensor.Id
}

func (s *InverterSensor) UniqueId() string {
	return s.uniqueId
}

func (s *InverterSensor) Name() string {
	return strings.TrimSpace(s.sensor.Name)
}

func (s *InverterSensor) Template() DisplayTemplate {
	return s.template
}

func (s *InverterSensor) Unit() string {
	return s.unit
}

func (s *InverterSensor) DeviceClass() string {
	return s.deviceClass
}

func (s *InverterSensor) StateClass() string {
	return s.template.StateClass
}

func (s *InverterSensor) EntityCategory() string {
	return s.entityCategory
}

func (s *InverterSensor) IsDiagnostic() bool {
	return s.entityCategory == domain.ENTITY_CLASS_DIAGNOSTIC
}

func (s *InverterSensor) Icon() string {
	return s.icon
}

func (s *InverterSensor) Describe() domain.GenericSensor {
	return domain.GenericSensor{
		Device:            s.device,
		Id:                s.sensor.Id,
		SensorType:        domain.SENSOR_TYPE_SENSOR,
		Name:              s.Name(),
		UniqueId:          s.uniqueId,
		UnitOfMeasurement: s.unit,
		StateClass:        s.template.StateClass,
		DeviceClass:       s.deviceClass,
		EntityCategory:    s.entityCategory,
		Icon:              s.icon,
	}
}

// Value returns the corrected reading for the snapshot and remembers it as
// the previous value. A reading missing from the snapshot falls back to the
// previous value. nil means unknown.
func (s *InverterSensor) Value(data domain.SensorData) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	value := s.template.Rule.Apply(s.sensor.Id, s.previous, data.Get(s.sensor.Id, s.previous))
	s.previous = value
	return value
}

// LastValue returns the value computed by the last Value call.
func (s *InverterSensor) LastValue() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previous
}

func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case float64:
		return v == 0
	case float32:
		return v == 0
	case int:
		return v == 0
	case int8:
		return v == 0
	case int16:
		return v == 0
	case int32:
		return v == 0
	case int64:
		return v == 0
	case uint:
		return v == 0
	case uint8:
		return v == 0
	case uint16:
		return v == 0
	case uint32:
		return v == 0
	case uint64:
		return v == 0
	default:
		return false
	}
}

// ensure interface compliance
var _ domain.SensorEntity = (*InverterSensor)(nil)
