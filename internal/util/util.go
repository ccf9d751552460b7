package util

import (
	"solarspy/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Powerwall: config.PowerwallConfig{
			ApiAddress:            "192.168.1.20",
			ConnectAttempts:       3,
			ConnectIntervalMillis: 10,
			RequestTimeoutMillis:  1000,
		},
		Display: config.DisplayConfig{
			Kind:                config.DISPLAY_KIND_DRYRUN,
			DigitCount:          10,
			Brightness:          1,
			BlinkIntervalMillis: 1,
			SolarDigits:         []int{0, 1},
			HouseDigits:         []int{2, 3},
			BatteryDigits:       []int{4, 5},
			GridDigits:          []int{6, 7},
			BatteryLevelDigits:  []int{8, 9},
		},
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "solarspy",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 1000,
			FetchTimeoutMillis: 1000,
		},
		Port: 8080,
	}
}
