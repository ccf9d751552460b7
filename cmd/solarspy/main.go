package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "solarspy/internal/adapter/actor"
	"solarspy/internal/adapter/display"
	"solarspy/internal/config"
	"solarspy/internal/core/actor"
	"solarspy/internal/core/domain"
	"solarspy/internal/core/port"
	"solarspy/internal/core/service"
	"solarspy/internal/server"
	"solarspy/internal/util/actorutil"
	"solarspy/pkg/powerwall"
	"solarspy/pkg/sevenseg"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return 2
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()
	logger.Info("starting solarspy", zap.String("version", versioninfo.Short()))

	client, err := newTelemetryClient(cfg, logger)
	if err != nil {
		logger.Error("could not create gateway client", zap.Error(err))
		return 1
	}
	statusDisplay, err := newDisplay(cfg, logger)
	if err != nil {
		logger.Error("could not open display", zap.Error(err))
		return 1
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	root := as.Root

	sessionEnded := make(chan domain.SessionEnded, 1)
	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterActor(*cfg, controlActorProvider(cfg, statusDisplay, client, logger), mqttActorProvider(cfg, logger), func(msg domain.SessionEnded) {
			select {
			case sessionEnded <- msg:
			default:
			}
		}, logger)
	})
	pid, err := root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		logger.Error("could not spawn master actor", zap.Error(err))
		_ = statusDisplay.Shutdown()
		return 1
	}

	// HTTP control plane
	apiServer := server.NewServer(*cfg, root, pid)
	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var advertiser *server.Advertiser
	if cfg.MDNS.Enable {
		advertiser, err = server.StartAdvertiser(*cfg, logger)
		if err != nil {
			logger.Warn("mDNS advertisement disabled", zap.Error(err))
		}
	}

	// start displaying right away and tick at the poll interval
	root.Send(pid, domain.StartCommand{})
	interval := time.Duration(cfg.MonitorConfig.PollIntervalMillis) * time.Millisecond
	cancelTick := scheduler.NewTimerScheduler(root).SendRepeatedly(interval, interval, pid, domain.TickCommand{})

	// Create context that listens for the interrupt signal from the OS.
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	select {
	case <-sigCtx.Done():
		logger.Info("shutting down gracefully, press Ctrl+C again to force")
	case msg := <-sessionEnded:
		logger.Error("display session ended", zap.String("kind", string(msg.Kind)), zap.Error(msg.Error))
		exitCode = 1
	case err := <-serverErr:
		logger.Error("http server error", zap.Error(err))
		exitCode = 1
	}
	stop()

	// no tick may follow the final stop
	cancelTick()
	if exitCode == 0 {
		res, err := root.RequestFuture(pid, domain.StopCommand{}, shutdownTimeout).Result()
		if err != nil {
			logger.Warn("display did not stop in time", zap.Error(err))
		} else if resp, ok := res.(domain.CommandResponse); ok && resp.HasResponseError() {
			logger.Error("display stop failed", zap.Error(resp.GetResponseError()))
			exitCode = 1
		}
	}

	advertiser.Shutdown()

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}

	// stopping the master releases the display hardware
	if err := root.StopFuture(pid).Wait(); err != nil {
		logger.Warn("actors did not stop cleanly", zap.Error(err))
	}
	as.Shutdown()
	logger.Info("shutdown complete", zap.Int("exit_code", exitCode))
	return exitCode
}

func newTelemetryClient(cfg *config.Config, logger *zap.Logger) (*powerwall.Client, error) {
	return powerwall.NewClient(powerwall.Config{
		Address: cfg.Powerwall.ApiAddress,
		// read on every login so a fixed .env is picked up without a restart
		Password: func() (string, error) {
			password := viper.GetString("powerwall.password")
			if password == "" {
				return "", fmt.Errorf("%w: POWERWALL_PASSWORD is not set", powerwall.ErrConfig)
			}
			return password, nil
		},
		ConnectAttempts: cfg.Powerwall.ConnectAttempts,
		ConnectInterval: time.Duration(cfg.Powerwall.ConnectIntervalMillis) * time.Millisecond,
		RequestTimeout:  time.Duration(cfg.Powerwall.RequestTimeoutMillis) * time.Millisecond,
	}, logger.With(zap.String("component", "powerwall")))
}

func newDisplay(cfg *config.Config, logger *zap.Logger) (port.StatusDisplay, error) {
	presenter := service.NewDefaultReadingPresenter(cfg.Display.Brightness)
	displayLogger := logger.With(zap.String("component", "display"), zap.String("kind", cfg.Display.Kind))

	var sink sevenseg.Sink
	switch cfg.Display.Kind {
	case config.DISPLAY_KIND_CONSOLE:
		return display.NewConsoleDisplay(os.Stdout, presenter, displayLogger), nil
	case config.DISPLAY_KIND_RGBDIGIT:
		sink = sevenseg.NewSPISink(cfg.Display.SPIDevice, physic.Frequency(cfg.Display.SPISpeedKHz)*physic.KiloHertz)
	case config.DISPLAY_KIND_DRYRUN:
		sink = &sevenseg.MemorySink{}
	default:
		return nil, fmt.Errorf("unknown display kind %q", cfg.Display.Kind)
	}

	buffer, err := sevenseg.NewBuffer(sink, cfg.Display.DigitCount)
	if err != nil {
		return nil, err
	}
	d, err := display.NewRGBDigitDisplay(buffer, display.Layout{
		Solar:        cfg.Display.SolarDigits,
		House:        cfg.Display.HouseDigits,
		Battery:      cfg.Display.BatteryDigits,
		Grid:         cfg.Display.GridDigits,
		BatteryLevel: cfg.Display.BatteryLevelDigits,
	}, presenter, displayLogger, display.WithBlinkInterval(
		time.Duration(cfg.Display.BlinkIntervalMillis)*time.Millisecond,
	))
	if err != nil {
		_ = buffer.Close()
		return nil, err
	}
	return d, nil
}

func controlActorProvider(cfg *config.Config, statusDisplay port.StatusDisplay, client port.TelemetryClient, logger *zap.Logger) actor.ControlActorProvider {
	return func(es *eventstream.EventStream) *actor.ControlActor {
		return actor.NewControlActor(cfg, statusDisplay, client, es, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}
