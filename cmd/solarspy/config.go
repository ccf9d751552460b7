package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"solarspy/internal/config"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func initConfig() (*config.Config, error) {

	// alias PORT => SOLARSPY_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SOLARSPY_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("solarspy")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// gateway settings keep their historical names
	_ = viper.BindEnv("powerwall.api_address", "POWERWALL_API_ADDRESS")
	_ = viper.BindEnv("powerwall.password", "POWERWALL_PASSWORD")

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if strings.TrimSpace(cfg.Powerwall.ApiAddress) == "" {
		return nil, errors.New("POWERWALL_API_ADDRESS is not set")
	}
	if cfg.MonitorConfig.PollIntervalMillis < 500 {
		return nil, errors.New("config param monitor.poll_interval_millis should be >= 500")
	}
	if cfg.Display.Brightness <= 0 || cfg.Display.Brightness > 1 {
		return nil, errors.New("config param display.brightness should be in (0, 1]")
	}
	switch cfg.Display.Kind {
	case config.DISPLAY_KIND_CONSOLE, config.DISPLAY_KIND_RGBDIGIT, config.DISPLAY_KIND_DRYRUN:
	default:
		return nil, fmt.Errorf("config param display.kind: unknown kind %q", cfg.Display.Kind)
	}
	if err := config.CheckDisplayLayout(cfg.Display); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("powerwall.api_address", "")
	viper.SetDefault("powerwall.connect_attempts", 300)
	viper.SetDefault("powerwall.connect_interval_millis", 200)
	viper.SetDefault("powerwall.request_timeout_millis", 5000)
	viper.SetDefault("monitor.poll_interval_millis", 1000)
	viper.SetDefault("monitor.fetch_timeout_millis", 5000)
	viper.SetDefault("display.kind", config.DISPLAY_KIND_CONSOLE)
	viper.SetDefault("display.spi_device", "")
	viper.SetDefault("display.spi_speed_khz", 2400)
	viper.SetDefault("display.digit_count", 10)
	viper.SetDefault("display.brightness", 1.0)
	viper.SetDefault("display.blink_interval_millis", 300)
	viper.SetDefault("display.solar_digits", []int{0, 1})
	viper.SetDefault("display.house_digits", []int{2, 3})
	viper.SetDefault("display.battery_digits", []int{4, 5})
	viper.SetDefault("display.grid_digits", []int{6, 7})
	viper.SetDefault("display.battery_level_digits", []int{8, 9})
	viper.SetDefault("mqtt.enable", false)
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "solarspy")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("mdns.enable", false)
	viper.SetDefault("mdns.instance", "")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
