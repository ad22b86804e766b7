package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	TRANSPORT_EXEC      = "exec"
	TRANSPORT_MODBUS    = "modbus"
	TRANSPORT_SIMULATED = "simulated"
)

type Config struct {
	LogLevel zapcore.Level
	Language string `mapstructure:"language"`

	Inverter InverterConfig `mapstructure:"inverter"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Report   ReportConfig   `mapstructure:"report"`

	Port    uint `mapstructure:"port"`
	HttpLog bool `mapstructure:"http_log"`
}

type InverterConfig struct {
	Host     string
	Username string
	Password string

	// Transport selects the telemetry source: exec (delegated helper
	// process), modbus (direct Modbus TCP) or simulated.
	Transport     string `mapstructure:"transport"`
	HelperCommand string `mapstructure:"helper_command"`
	ModbusPort    uint   `mapstructure:"modbus_port"`
	ModbusUnitId  uint   `mapstructure:"modbus_unit_id"`

	Name            string  `mapstructure:"name"`
	Model           string  `mapstructure:"model"`
	SerialNumber    string  `mapstructure:"serial_number"`
	Strings         int     `mapstructure:"strings"`
	MaxPower        float64 `mapstructure:"max_power"`
	MaxEnergyPerDay float64 `mapstructure:"max_energy_per_day"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	FetchTimeoutMillis uint32 `mapstructure:"fetch_timeout_millis"`
}

type ReportConfig struct {
	Enable bool   `mapstructure:"enable"`
	Time   string `mapstructure:"time"`
}

type MQTTConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string `mapstructure:"base_topic"`
}

// TelemetryConfigured reports whether the inverter connection is usable.
// The simulated transport needs no connection parameters.
func (c Config) TelemetryConfigured() bool {
	if c.Inverter.Transport == TRANSPORT_SIMULATED {
		return true
	}
	return c.Inverter.Host != ""
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
