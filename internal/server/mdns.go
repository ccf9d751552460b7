package server

import (
	"fmt"
	"os"

	"solarspy/internal/config"

	"github.com/carlmjohnson/versioninfo"
	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	MDNS_SERVICE_TYPE   = "_solarspy._tcp"
	MDNS_SERVICE_DOMAIN = "local."
)

// Advertiser publishes the HTTP control plane on the local network.
type Advertiser struct {
	server *zeroconf.Server
	logger *zap.Logger
}

func MDNSInstanceName(cfg config.MDNSConfig) string {
	if cfg.Instance != "" {
		return cfg.Instance
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "solarspy"
	}
	return fmt.Sprintf("solarspy-%s", hostname)
}

func MDNSText(cfg config.Config) []string {
	return []string{
		fmt.Sprintf("version=%s", versioninfo.Short()),
		fmt.Sprintf("display=%s", cfg.Display.Kind),
		"path=/healthcheck",
	}
}

func StartAdvertiser(cfg config.Config, logger *zap.Logger) (*Advertiser, error) {
	instance := MDNSInstanceName(cfg.MDNS)
	server, err := zeroconf.Register(instance, MDNS_SERVICE_TYPE, MDNS_SERVICE_DOMAIN, int(cfg.Port), MDNSText(cfg), nil)
	if err != nil {
		return nil, fmt.Errorf("register mDNS service: %w", err)
	}
	logger.Info("mDNS service registered", zap.String("instance", instance), zap.String("service", MDNS_SERVICE_TYPE), zap.Uint("port", cfg.Port))
	return &Advertiser{server: server, logger: logger}, nil
}

func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.logger.Debug("mDNS service removed")
}
