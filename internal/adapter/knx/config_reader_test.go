package knx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigurationYAML = `
homeassistant:
  name: Home
knx:
  rate_limit: 20
  sensor:
    - name: Living room temperature
      state_address: "1/1/1"
      type: temperature
  switch:
    - &kitchen
      name: Kitchen light
      address: "1/2/1"
    - <<: *kitchen
      name: Hall light
  expose:
    - type: time
      address: "0/0/1"
mqtt:
  password: !secret mqtt_password
`

func TestParseConfigYAML(t *testing.T) {

	assert := assert.New(t)

	cfg, err := ParseConfigYAML([]byte(testConfigurationYAML))
	require.NoError(t, err)

	knxSection, ok := cfg["knx"].(map[string]any)
	require.True(t, ok)
	assert.Equal(20, knxSection["rate_limit"])

	sensors := knxSection["sensor"].([]any)
	require.Len(t, sensors, 1)
	assert.Equal("1/1/1", sensors[0].(map[string]any)["state_address"])

	switches := knxSection["switch"].([]any)
	require.Len(t, switches, 2)
	hall := switches[1].(map[string]any)
	assert.Equal("Hall light", hall["name"])
	assert.Equal("1/2/1", hall["address"], "merged from anchor")

	assert.Equal("mqtt_password", cfg["mqtt"].(map[string]any)["password"])
}

func TestParseConfigYAMLMergeList(t *testing.T) {

	assert := assert.New(t)

	cfg, err := ParseConfigYAML([]byte(`
defaults:
  - &dimmable
    brightness_address: "1/0/11"
    state_address: "1/0/10"
  - &colored
    color_address: "1/0/12"
    state_address: "1/9/9"
knx:
  light:
    - <<: [*dimmable, *colored]
      name: Living room
      address: "1/0/9"
      color_address: "1/0/20"
`))
	require.NoError(t, err)

	lights := cfg["knx"].(map[string]any)["light"].([]any)
	require.Len(t, lights, 1)
	light := lights[0].(map[string]any)
	assert.Equal("Living room", light["name"])
	assert.Equal("1/0/11", light["brightness_address"])
	assert.Equal("1/0/10", light["state_address"], "first merged mapping wins")
	assert.Equal("1/0/20", light["color_address"], "explicit keys win over merged ones")
	assert.NotContains(light, "<<")
}

func TestParseConfigYAMLEmpty(t *testing.T) {
	cfg, err := ParseConfigYAML([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, cfg)
}

func TestParseConfigYAMLNotAMapping(t *testing.T) {
	_, err := ParseConfigYAML([]byte("- a\n- b\n"))
	assert.Error(t, err)
}

func TestYAMLConfigReader(t *testing.T) {

	path := filepath.Join(t.TempDir(), "configuration.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigurationYAML), 0600))

	reader := NewYAMLConfigReader(path)
	cfg, err := reader.ReadConfig(context.Background())
	require.NoError(t, err)
	assert.Contains(t, cfg, "knx")

	// the file is read again on each call
	require.NoError(t, os.WriteFile(path, []byte("knx: {}\n"), 0600))
	cfg, err = reader.ReadConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, cfg["knx"])
}

func TestYAMLConfigReaderMissingFile(t *testing.T) {
	reader := NewYAMLConfigReader(filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := reader.ReadConfig(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
