package actorutil

import (
	"log/slog"
	"time"

	"solarspy/internal/core/domain"
	"solarspy/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel, zap.DPanicLevel, zap.PanicLevel, zap.FatalLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
			NoColor:    true,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps the display switch to Start/Stop. Anything
// else is not a command and returns nil.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) domain.Command {
	if cmd.DeviceId != domain.SWITCH_ID_DISPLAY || cmd.Command != mqtt.MQTT_COMMAND_SWITCH {
		return nil
	}
	switch cmd.Payload {
	case mqtt.MQTT_PAYLOAD_ON:
		return domain.StartCommand{}
	case mqtt.MQTT_PAYLOAD_OFF:
		return domain.StopCommand{}
	}
	return nil
}
