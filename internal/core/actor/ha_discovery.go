package actor

import (
	"errors"
	"fmt"
	"time"

	"solarspy/internal/config"
	"solarspy/internal/core/domain"
	"solarspy/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	HADISCOVERY_ACTOR_ID = "hadiscovery"

	haDiscoveryMaxChecks     = 10
	haDiscoveryCheckInterval = 2 * time.Second
)

// HADiscoveryActor announces the bridge, the reading sensors and the display
// switch once the MQTT actor is up, then idles.
type HADiscoveryActor struct {
	config    *config.Config
	behavior  actor.Behavior
	mqttActor *actor.PID
	scheduler *scheduler.TimerScheduler
	checks    int

	logger *zap.Logger
}

type haDiscoveryRecheck struct {
}

func NewHADiscoveryActor(config *config.Config, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:    config,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		logger:    actorutil.ActorLogger(HADISCOVERY_ACTOR_ID, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.checkMQTT(ctx)
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) checkMQTT(ctx actor.Context) {
	state.checks++
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: false,
		}
	})
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if !msg.Healthy {
			// the broker connection may still be in progress
			if state.checks >= haDiscoveryMaxChecks {
				panic(errors.New("MQTT Actor is not healthy"))
			}
			state.scheduler.RequestOnce(haDiscoveryCheckInterval, ctx.Self(), haDiscoveryRecheck{})
			return
		}
		sensors, switches := DiscoveryComponents(state.config)
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors:  sensors,
			Switches: switches,
		})
		state.behavior.Become(state.Done)
	case haDiscoveryRecheck:
		state.checkMQTT(ctx)
	default:
		state.logger.Debug("hadiscovery@healthcheck: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

// DiscoveryComponents lists every entity the bridge exposes. The display
// device hangs off the bridge device.
func DiscoveryComponents(cfg *config.Config) ([]domain.GenericSensor, []domain.GenericSwitch) {
	var sensors []domain.GenericSensor

	bridgeDevice := domain.BridgeDevice(cfg.MQTT.BaseTopic)
	sensors = append(sensors, domain.BridgeSensors(bridgeDevice)...)

	displayDevice := domain.DisplayDevice(cfg.Powerwall.ApiAddress)
	displayDevice.ViaDevice = bridgeDevice.Id
	readingSensors := domain.ReadingSensors(displayDevice)
	for i := range readingSensors {
		// full device info is only needed once
		if i > 0 {
			readingSensors[i].Device = domain.IdDevice(displayDevice)
		}
		sensors = append(sensors, readingSensors[i])
	}

	switches := domain.DisplaySwitches(domain.IdDevice(displayDevice))
	return sensors, switches
}
