package service

import (
	"testing"

	"github.com/berfenger/hassbridge/internal/core/domain"
	"github.com/berfenger/hassbridge/pkg/goodwe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const TEST_SERIAL = "9010KETU000W0000"

func testDevice() domain.Device {
	return domain.Device{Id: "goodwe_" + TEST_SERIAL, Name: "GoodWe GW10K-ET"}
}

func TestSetupSkipsUnusedSensors(t *testing.T) {

	assert := assert.New(t)

	sensors := []goodwe.Sensor{
		{Id: "ppv", Name: "PV Power", Unit: "W", Kind: goodwe.SensorKindPV},
		{Id: "xx35120", Name: "Unknown sensor@35120"},
		{Id: "vgrid", Name: " On-grid L1 Voltage ", Unit: "V", Kind: goodwe.SensorKindAC},
	}

	entities := SetupInverterSensors(testDevice(), TEST_SERIAL, sensors)

	require.Len(t, entities, 2)
	assert.Equal("ppv", entities[0].SensorId())
	assert.Equal("goodwe-ppv-"+TEST_SERIAL, entities[0].UniqueId())
	assert.Equal("vgrid", entities[1].SensorId())
	assert.Equal("On-grid L1 Voltage", entities[1].Name(), "name is trimmed")
}

func TestMainSensorsAreNotDiagnostic(t *testing.T) {

	assert := assert.New(t)

	main := []string{"ppv", "house_consumption", "active_power", "battery_soc", "e_day", "e_total",
		"meter_e_total_exp", "meter_e_total_imp", "e_bat_charge_total", "e_bat_discharge_total"}
	for _, id := range main {
		s := NewInverterSensor(testDevice(), TEST_SERIAL, goodwe.Sensor{Id: id, Unit: "W"})
		assert.False(s.IsDiagnostic(), id)
		assert.Empty(s.EntityCategory(), id)
	}

	for _, id := range []string{"vpv1", "temperature", "e_bat_charge_day", "battery_mode", "total_inverter_power"} {
		s := NewInverterSensor(testDevice(), TEST_SERIAL, goodwe.Sensor{Id: id, Unit: "W"})
		assert.True(s.IsDiagnostic(), id)
		assert.Equal(domain.ENTITY_CLASS_DIAGNOSTIC, s.EntityCategory(), id)
	}
}

func TestTemplateSelection(t *testing.T) {

	tests := []struct {
		unit        string
		deviceClass string
		stateClass  string
		displayUnit string
		rule        ValueRule
	}{
		{"A", domain.DEVICE_CLASS_CURRENT, domain.STATE_CLASS_MEASUREMENT, "A", ValueRuleIdentity},
		{"V", domain.DEVICE_CLASS_VOLTAGE, domain.STATE_CLASS_MEASUREMENT, "V", ValueRuleIdentity},
		{"W", domain.DEVICE_CLASS_POWER, domain.STATE_CLASS_MEASUREMENT, "W", ValueRuleIdentity},
		{"kWh", domain.DEVICE_CLASS_ENERGY, domain.STATE_CLASS_TOTAL_INCREASING, "kWh", ValueRuleSuppressFalsyOnTotal},
		{"C", domain.DEVICE_CLASS_TEMPERATURE, domain.STATE_CLASS_MEASUREMENT, "°C", ValueRuleIdentity},
		{"Hz", domain.DEVICE_CLASS_FREQUENCY, domain.STATE_CLASS_MEASUREMENT, "Hz", ValueRuleIdentity},
		{"%", "", domain.STATE_CLASS_MEASUREMENT, "%", ValueRuleIdentity},
		{"h", "", domain.STATE_CLASS_MEASUREMENT, "h", ValueRuleIdentity},
		{"", "", domain.STATE_CLASS_MEASUREMENT, "", ValueRuleIdentity},
		{"VA", "", domain.STATE_CLASS_MEASUREMENT, "VA", ValueRuleIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			s := NewInverterSensor(testDevice(), TEST_SERIAL, goodwe.Sensor{Id: "vpv1", Unit: tt.unit})
			assert.Equal(t, tt.deviceClass, s.DeviceClass())
			assert.Equal(t, tt.stateClass, s.StateClass())
			assert.Equal(t, tt.displayUnit, s.Unit())
			assert.Equal(t, tt.rule, s.Template().Rule)
		})
	}
}

func TestUnknownUnitUsesDiagTemplate(t *testing.T) {
	s := NewInverterSensor(testDevice(), TEST_SERIAL, goodwe.Sensor{Id: "pv_mode", Unit: "mode"})
	assert.Equal(t, DiagTemplate.Key, s.Template().Key)
	assert.Equal(t, "mode", s.Unit(), "sensor unit shown verbatim")
}

func TestBatterySoCDeviceClass(t *testing.T) {

	assert := assert.New(t)

	for _, unit := range []string{"%", "W", "", "kWh"} {
		s := NewInverterSensor(testDevice(), TEST_SERIAL, goodwe.Sensor{Id: SENSOR_ID_BATTERY_SOC, Unit: unit})
		assert.Equal(domain.DEVICE_CLASS_BATTERY, s.DeviceClass(), unit)
	}
}

func TestIcons(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("mdi:solar-power", IconForKind(goodwe.SensorKindPV))
	assert.Equal("mdi:power-plug-outline", IconForKind(goodwe.SensorKindAC))
	assert.Equal("mdi:power-plug-off-outline", IconForKind(goodwe.SensorKindUPS))
	assert.Equal("mdi:battery-high", IconForKind(goodwe.SensorKindBAT))
	assert.Equal("mdi:transmission-tower", IconForKind(goodwe.SensorKindGRID))
	assert.Empty(IconForKind(goodwe.SensorKindBMS))
	assert.Empty(IconForKind(goodwe.SensorKindNone))
}

func TestEnergyTotalKeepsPreviousOnZero(t *testing.T) {

	require := require.New(t)

	s := NewInverterSensor(testDevice(), TEST_SERIAL, goodwe.Sensor{Id: "e_total", Unit: "kWh"})

	require.Equal(1200.5, s.Value(domain.SensorData{"e_total": 1200.5}))
	require.Equal(1200.5, s.LastValue())

	// spurious zero reading
	require.Equal(1200.5, s.Value(domain.SensorData{"e_total": 0.0}))
	require.Equal(1200.5, s.LastValue())

	// nil reading
	require.Equal(1200.5, s.Value(domain.SensorData{"e_total": nil}))
	require.Equal(1200.5, s.LastValue())

	// new value
	require.Equal(1201.0, s.Value(domain.SensorData{"e_total": 1201.0}))
	require.Equal(1201.0, s.LastValue())
}

func TestEnergyNonTotalPassesZero(t *testing.T) {

	s := NewInverterSensor(testDevice(), TEST_SERIAL, goodwe.Sensor{Id: "e_day", Unit: "kWh"})

	assert.Equal(t, 8.4, s.Value(domain.SensorData{"e_day": 8.4}))
	assert.Equal(t, 0.0, s.Value(domain.SensorData{"e_day": 0.0}), "daily counter resets")
}

func TestEnergyTotalFirstReadingZeroIsUnknown(t *testing.T) {

	s := NewInverterSensor(testDevice(), TEST_SERIAL, goodwe.Sensor{Id: "meter_e_total_imp", Unit: "kWh"})

	assert.Nil(t, s.Value(domain.SensorData{"meter_e_total_imp": 0.0}))
	assert.Nil(t, s.LastValue())
}

func TestIdentityIgnoresPrevious(t *testing.T) {

	assert := assert.New(t)

	s := NewInverterSensor(testDevice(), TEST_SERIAL, goodwe.Sensor{Id: "total_inverter_power", Unit: "W"})

	assert.Equal(1500.0, s.Value(domain.SensorData{"total_inverter_power": 1500.0}))
	assert.Equal(0.0, s.Value(domain.SensorData{"total_inverter_power": 0.0}))
	assert.Equal(-20.0, s.Value(domain.SensorData{"total_inverter_power": -20.0}))
}

func TestMissingValueFallsBackToPrevious(t *testing.T) {

	assert := assert.New(t)

	s := NewInverterSensor(testDevice(), TEST_SERIAL, goodwe.Sensor{Id: "vgrid", Unit: "V"})

	assert.Nil(s.Value(domain.SensorData{}), "unknown before the first reading")
	assert.Equal(231.4, s.Value(domain.SensorData{"vgrid": 231.4}))
	assert.Equal(231.4, s.Value(domain.SensorData{}))
	assert.Equal(231.4, s.Value(nil))
}

func TestValueRuleApply(t *testing.T) {

	tests := []struct {
		name     string
		rule     ValueRule
		sensorId string
		prev     any
		value    any
		expected any
	}{
		{"identity zero", ValueRuleIdentity, "e_total", 10.0, 0.0, 0.0},
		{"identity nil", ValueRuleIdentity, "e_total", 10.0, nil, nil},
		{"total zero float", ValueRuleSuppressFalsyOnTotal, "e_total", 10.0, 0.0, 10.0},
		{"total zero int", ValueRuleSuppressFalsyOnTotal, "e_total", 10.0, 0, 10.0},
		{"total empty string", ValueRuleSuppressFalsyOnTotal, "e_total", 10.0, "", 10.0},
		{"total false", ValueRuleSuppressFalsyOnTotal, "e_total", 10.0, false, 10.0},
		{"total nil", ValueRuleSuppressFalsyOnTotal, "e_total", 10.0, nil, 10.0},
		{"total value", ValueRuleSuppressFalsyOnTotal, "e_total", 10.0, 11.0, 11.0},
		{"total lower value", ValueRuleSuppressFalsyOnTotal, "e_total", 10.0, 9.0, 9.0},
		{"not total zero", ValueRuleSuppressFalsyOnTotal, "e_day", 10.0, 0.0, 0.0},
		{"total in the middle", ValueRuleSuppressFalsyOnTotal, "meter_e_total_exp", 5.0, uint32(0), 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.rule.Apply(tt.sensorId, tt.prev, tt.value))
		})
	}
}

func TestDescribe(t *testing.T) {

	assert := assert.New(t)

	s := NewInverterSensor(testDevice(), TEST_SERIAL, goodwe.Sensor{Id: "battery_soc", Name: "Battery State of Charge", Unit: "%", Kind: goodwe.SensorKindBAT})
	d := s.Describe()

	assert.Equal("battery_soc", d.Id)
	assert.Equal(domain.SENSOR_TYPE_SENSOR, d.SensorType)
	assert.Equal("goodwe-battery_soc-"+TEST_SERIAL, d.UniqueId)
	assert.Equal(domain.DEVICE_CLASS_BATTERY, d.DeviceClass)
	assert.Equal(domain.STATE_CLASS_MEASUREMENT, d.StateClass)
	assert.Equal("%", d.UnitOfMeasurement)
	assert.Equal("mdi:battery-high", d.Icon)
	assert.Empty(d.EntityCategory)
	assert.Equal(testDevice(), d.Device)
}
