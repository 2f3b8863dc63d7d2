package util

import (
	"github.com/berfenger/hassbridge/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "hassbridge",
			HADiscoveryTopic:  "homeassistant",
			HADiscoveryEnable: true,
		},
		GoodWe: config.GoodWeConfig{
			Enable:             true,
			Host:               "-.-.-.-",
			Port:               8899,
			UnitId:             0xF7,
			TimeoutMillis:      1000,
			PollIntervalMillis: 1000,
			EntryId:            "goodwe_test_entry",
			ModelFamily:        config.GOODWE_MODEL_FAMILY_TEST,
		},
		KNX: config.KNXConfig{
			Enable:            true,
			EntryId:           "knx_test_entry",
			IndividualAddress: "15.15.250",
			ConnectionType:    config.KNX_CONNECTION_AUTOMATIC,
		},
		Port: 8080,
	}
}
