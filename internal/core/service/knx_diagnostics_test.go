package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/berfenger/hassbridge/internal/adapter/knx"
	"github.com/berfenger/hassbridge/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSystemInfo struct {
	err error
}

func (f fakeSystemInfo) SystemInfo(ctx context.Context) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"version": "1.2.3", "docker": true}, nil
}

type fakeConfigReader struct {
	config map[string]any
	err    error
}

func (f fakeConfigReader) ReadConfig(ctx context.Context) (map[string]any, error) {
	return f.config, f.err
}

type fakeKNXConnection struct{}

func (fakeKNXConnection) Version() string        { return "3.1.0" }
func (fakeKNXConnection) CurrentAddress() string { return "15.15.250" }

const validKNXConfiguration = `
homeassistant:
  name: Home
knx:
  rate_limit: 20
  expose:
    - type: time
      address: "0/0/4"
  binary_sensor:
    - name: Front door
      state_address: "6/0/2"
      device_class: door
      reset_after: 0.5
  sensor:
    - name: Outside temperature
      state_address: "6/2/1"
      type: temperature
      entity_category: diagnostic
  switch:
    - name: Garden light
      address: "1/1/10"
      state_address: "1/1/11"
  light:
    - name: Living room
      address: "1/0/9"
      color_address: "1/0/12"
      color_temperature_address: "1/0/14"
      min_kelvin: 2700
      max_kelvin: 6000
  cover:
    - name: Kitchen shutter
      move_long_address: "3/0/0"
      stop_address: "3/0/4"
      position_address: "3/0/3"
      travelling_time_down: 51
      travelling_time_up: 61
  climate:
    - name: Living room heating
      temperature_address: "5/1/1"
      target_temperature_state_address: "5/1/4"
      setpoint_shift_address: "5/1/2"
      setpoint_shift_mode: DPT9002
      operation_modes: ["Auto", "Comfort"]
  fan:
    - name: Bathroom fan
      address: "9/0/1"
      max_step: 3
  scene:
    - name: Movie night
      address: "7/0/9"
      scene_number: 24
  weather:
    - name: Home weather
      address_temperature: "7/0/0"
      address_wind_speed: "7/0/7"
`

func newTestCollector(t *testing.T, raw map[string]any) (*KNXDiagnosticsCollector, *ConfigEntryRegistry) {
	reg := NewConfigEntryRegistry()
	_, err := reg.Add(domain.ConfigEntry{
		EntryId: "01J5KNX",
		Domain:  KNX_DOMAIN,
		Title:   "KNX Interface",
		Data: map[string]any{
			"connection_type":    "tunneling",
			"individual_address": "15.15.250",
			"host":               "192.168.0.2",
		},
	})
	require.NoError(t, err)
	return NewKNXDiagnosticsCollector(reg, fakeSystemInfo{}, fakeConfigReader{config: raw}, knx.NewSchema(), fakeKNXConnection{}), reg
}

func TestKNXDiagnosticsValidConfiguration(t *testing.T) {

	assert := assert.New(t)

	raw, err := knx.ParseConfigYAML([]byte(validKNXConfiguration))
	require.NoError(t, err)
	collector, _ := newTestCollector(t, raw)

	diag, err := collector.ConfigEntryDiagnostics(context.Background(), "01J5KNX")
	require.NoError(t, err)

	assert.Equal("1.2.3", diag.SystemInfo["version"])
	assert.Equal("3.1.0", diag.KNX.Version)
	assert.Equal("15.15.250", diag.KNX.CurrentAddress)
	assert.Equal("tunneling", diag.ConfigEntryData["connection_type"])
	assert.Equal(raw["knx"], diag.ConfigurationYAML)
	assert.Nil(diag.ConfigurationError)
}

func TestKNXDiagnosticsInvalidConfiguration(t *testing.T) {

	assert := assert.New(t)

	raw := map[string]any{
		"knx": map[string]any{
			"sensor": []any{map[string]any{"name": "Temp", "type": "temperature"}},
		},
	}
	collector, _ := newTestCollector(t, raw)

	diag, err := collector.ConfigEntryDiagnostics(context.Background(), "01J5KNX")
	require.NoError(t, err, "validation failures never fail the request")
	require.NotNil(t, diag.ConfigurationError)
	assert.Equal("required key not provided @ data['knx']['sensor'][0]['state_address']", *diag.ConfigurationError)
	assert.Equal(raw["knx"], diag.ConfigurationYAML, "invalid content is returned as is")
}

func TestKNXDiagnosticsConfigurationErrorAlwaysPresent(t *testing.T) {

	collector, _ := newTestCollector(t, map[string]any{})

	diag, err := collector.ConfigEntryDiagnostics(context.Background(), "01J5KNX")
	require.NoError(t, err)

	payload, err := json.Marshal(diag)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Contains(t, decoded, "configuration_error")
	assert.Nil(t, decoded["configuration_error"])
	assert.Contains(t, decoded, "configuration_yaml")
	assert.Contains(t, decoded, "system_info")
	assert.Equal(t, map[string]any{"version": "3.1.0", "current_address": "15.15.250"}, decoded["knx"])
}

func TestKNXDiagnosticsEntryDataIsCopy(t *testing.T) {

	collector, reg := newTestCollector(t, map[string]any{})

	diag, err := collector.ConfigEntryDiagnostics(context.Background(), "01J5KNX")
	require.NoError(t, err)

	diag.ConfigEntryData["host"] = "10.0.0.99"
	diag.ConfigEntryData["injected"] = true

	entry, err := reg.Get("01J5KNX")
	require.NoError(t, err)
	assert.Equal(t, "192.168.0.2", entry.Data["host"])
	assert.NotContains(t, entry.Data, "injected")
}

func TestKNXDiagnosticsCollaboratorErrors(t *testing.T) {

	reg := NewConfigEntryRegistry()
	_, err := reg.Add(domain.ConfigEntry{EntryId: "e", Domain: KNX_DOMAIN})
	require.NoError(t, err)

	errInfo := errors.New("info unavailable")
	collector := NewKNXDiagnosticsCollector(reg, fakeSystemInfo{err: errInfo}, fakeConfigReader{}, knx.NewSchema(), fakeKNXConnection{})
	_, err = collector.ConfigEntryDiagnostics(context.Background(), "e")
	assert.ErrorIs(t, err, errInfo)

	errRead := errors.New("permission denied")
	collector = NewKNXDiagnosticsCollector(reg, fakeSystemInfo{}, fakeConfigReader{err: errRead}, knx.NewSchema(), fakeKNXConnection{})
	_, err = collector.ConfigEntryDiagnostics(context.Background(), "e")
	assert.ErrorIs(t, err, errRead)
}

func TestKNXDiagnosticsUnknownEntry(t *testing.T) {

	collector, reg := newTestCollector(t, map[string]any{})

	_, err := collector.ConfigEntryDiagnostics(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrConfigEntryNotFound)

	_, err = reg.Add(domain.ConfigEntry{EntryId: "gw", Domain: GOODWE_DOMAIN})
	require.NoError(t, err)
	_, err = collector.ConfigEntryDiagnostics(context.Background(), "gw")
	assert.Error(t, err)
}
