package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	DISPLAY_KIND_CONSOLE  = "console"
	DISPLAY_KIND_RGBDIGIT = "rgbdigit"
	DISPLAY_KIND_DRYRUN   = "dryrun"
)

type Config struct {
	LogLevel  zapcore.Level
	Powerwall PowerwallConfig `mapstructure:"powerwall"`
	Display   DisplayConfig   `mapstructure:"display"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`

	MonitorConfig MonitorConfig `mapstructure:"monitor"`
	MDNS          MDNSConfig    `mapstructure:"mdns"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

type PowerwallConfig struct {
	ApiAddress            string `mapstructure:"api_address"`
	ConnectAttempts       int    `mapstructure:"connect_attempts"`
	ConnectIntervalMillis uint32 `mapstructure:"connect_interval_millis"`
	RequestTimeoutMillis  uint32 `mapstructure:"request_timeout_millis"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	FetchTimeoutMillis uint32 `mapstructure:"fetch_timeout_millis"`
}

// DisplayConfig describes the indicator. Each view lists the digit cells it
// renders on, left to right.
type DisplayConfig struct {
	Kind                string `mapstructure:"kind"`
	SPIDevice           string `mapstructure:"spi_device"`
	SPISpeedKHz         uint32 `mapstructure:"spi_speed_khz"`
	DigitCount          int    `mapstructure:"digit_count"`
	Brightness          float64
	BlinkIntervalMillis uint32 `mapstructure:"blink_interval_millis"`

	SolarDigits        []int `mapstructure:"solar_digits"`
	HouseDigits        []int `mapstructure:"house_digits"`
	BatteryDigits      []int `mapstructure:"battery_digits"`
	GridDigits         []int `mapstructure:"grid_digits"`
	BatteryLevelDigits []int `mapstructure:"battery_level_digits"`
}

type MQTTConfig struct {
	Enable            bool
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type MDNSConfig struct {
	Enable   bool
	Instance string
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

// CheckDisplayLayout verifies that every view fits in the digit string.
func CheckDisplayLayout(cfg DisplayConfig) error {
	if cfg.Kind != DISPLAY_KIND_RGBDIGIT && cfg.Kind != DISPLAY_KIND_DRYRUN {
		return nil
	}
	if cfg.DigitCount <= 0 {
		return errors.New("config param display.digit_count should be > 0")
	}
	views := map[string][]int{
		"solar_digits":         cfg.SolarDigits,
		"house_digits":         cfg.HouseDigits,
		"battery_digits":       cfg.BatteryDigits,
		"grid_digits":          cfg.GridDigits,
		"battery_level_digits": cfg.BatteryLevelDigits,
	}
	for name, digits := range views {
		if len(digits) == 0 {
			return fmt.Errorf("config param display.%s should list at least one digit", name)
		}
		for _, d := range digits {
			if d < 0 || d >= cfg.DigitCount {
				return fmt.Errorf("config param display.%s: digit %d out of range [0, %d)", name, d, cfg.DigitCount)
			}
		}
	}
	return nil
}
