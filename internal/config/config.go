package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/berfenger/hassbridge/internal/adapter/knx"

	"go.uber.org/zap/zapcore"
)

const (
	GOODWE_MODEL_FAMILY_ET   = "ET"
	GOODWE_MODEL_FAMILY_TEST = "test"

	KNX_CONNECTION_AUTOMATIC = "automatic"
	KNX_CONNECTION_TUNNELING = "tunneling"
	KNX_CONNECTION_ROUTING   = "routing"

	MIN_POLL_INTERVAL_MILLIS = 1000
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig   `mapstructure:"mqtt"`
	GoodWe   GoodWeConfig `mapstructure:"goodwe"`
	KNX      KNXConfig    `mapstructure:"knx"`
	Port     uint         `mapstructure:"port"`
	HttpLog  bool         `mapstructure:"http_log"`
}

type GoodWeConfig struct {
	Enable             bool
	Host               string
	Port               uint
	UnitId             uint   `mapstructure:"unit_id"`
	TimeoutMillis      uint32 `mapstructure:"timeout_millis"`
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	EntryId            string `mapstructure:"entry_id"`
	ModelFamily        string `mapstructure:"model_family"`
}

type KNXConfig struct {
	Enable            bool
	EntryId           string `mapstructure:"entry_id"`
	IndividualAddress string `mapstructure:"individual_address"`
	GatewayIP         string `mapstructure:"gateway_ip"`
	GatewayPort       uint   `mapstructure:"gateway_port"`
	ConnectionType    string `mapstructure:"connection_type"`
	ConfigurationFile string `mapstructure:"configuration_file"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// Validate normalizes topics and checks the bounds of every enabled
// integration. All problems are reported at once.
func (c *Config) Validate() error {
	var errs []string

	if baseTopic, err := CheckMQTTTopic(c.MQTT.BaseTopic); err != nil {
		errs = append(errs, "mqtt.base_topic: "+err.Error())
	} else {
		c.MQTT.BaseTopic = baseTopic
	}
	if hadTopic, err := CheckMQTTTopic(c.MQTT.HADiscoveryTopic); err != nil {
		errs = append(errs, "mqtt.ha_discovery_topic: "+err.Error())
	} else {
		c.MQTT.HADiscoveryTopic = hadTopic
	}

	if c.GoodWe.Enable {
		switch c.GoodWe.ModelFamily {
		case GOODWE_MODEL_FAMILY_ET:
			if c.GoodWe.Host == "" {
				errs = append(errs, "goodwe.host is required")
			}
		case GOODWE_MODEL_FAMILY_TEST:
		default:
			errs = append(errs, fmt.Sprintf("goodwe.model_family %q is not supported", c.GoodWe.ModelFamily))
		}
		if c.GoodWe.UnitId > 255 {
			errs = append(errs, "goodwe.unit_id should be <= 255")
		}
		if c.GoodWe.PollIntervalMillis < MIN_POLL_INTERVAL_MILLIS {
			errs = append(errs, fmt.Sprintf("goodwe.poll_interval_millis should be >= %d", MIN_POLL_INTERVAL_MILLIS))
		}
	}

	if c.KNX.Enable {
		if _, err := knx.ParseIndividualAddress(c.KNX.IndividualAddress); err != nil {
			errs = append(errs, "knx.individual_address: "+err.Error())
		}
		switch c.KNX.ConnectionType {
		case KNX_CONNECTION_AUTOMATIC, KNX_CONNECTION_TUNNELING, KNX_CONNECTION_ROUTING:
		default:
			errs = append(errs, fmt.Sprintf("knx.connection_type %q is not supported", c.KNX.ConnectionType))
		}
		if c.KNX.ConnectionType == KNX_CONNECTION_TUNNELING && c.KNX.GatewayIP == "" {
			errs = append(errs, "knx.gateway_ip is required for tunneling")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
