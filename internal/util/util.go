package util

import (
	"github.com/chr-braun/kostalbridge/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Language: "en",
		Inverter: config.InverterConfig{
			Host:            "-.-.-.-",
			Transport:       config.TRANSPORT_SIMULATED,
			Name:            "Test Inverter",
			Model:           "Piko 5.5",
			SerialNumber:    "90342.1561",
			Strings:         2,
			MaxPower:        5500,
			MaxEnergyPerDay: 20,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "kostalbridge",
		},
		Monitor: config.MonitorConfig{
			PollIntervalMillis: 5000,
			FetchTimeoutMillis: 4000,
		},
		Report: config.ReportConfig{
			Enable: true,
			Time:   "21:00",
		},
		Port: 8080,
	}
}
