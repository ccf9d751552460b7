package actor

import (
	"fmt"
	"time"

	adactor "solarspy/internal/adapter/actor"
	"solarspy/internal/config"
	"solarspy/internal/core/domain"
	. "solarspy/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type ControlActorProvider func(*eventstream.EventStream) *ControlActor

// SessionEndHandler is called once, from the master actor, when the control
// session is over.
type SessionEndHandler func(domain.SessionEnded)

// the control actor answers health only between fetches
const healthProbeMargin = 500 * time.Millisecond

type MasterActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	healthProbeTimeout time.Duration

	currentHealthCheck   healthCheckResult
	eventStream          *eventstream.EventStream
	controlActor         *actor.PID
	mqttActor            *actor.PID
	controlActorProvider ControlActorProvider
	mqttActorProvider    MQTTActorProvider
	onSessionEnd         SessionEndHandler
	sessionEnded         bool
	stopping             bool
	logger               *zap.Logger
}

type healthCheckResult struct {
	controlActorHealthy bool
	mqttActorHealthy    bool
	controlState        string
	checksExpected      int
	checksReceived      int
	respondTo           *actor.PID
}

// NewMasterActor builds the supervisor. mqttActorProvider may be nil, and is
// ignored unless mqtt.enable is set.
func NewMasterActor(config config.Config, controlActorProvider ControlActorProvider, mqttActorProvider MQTTActorProvider, onSessionEnd SessionEndHandler, logger *zap.Logger) *MasterActor {
	act := &MasterActor{
		config:               config,
		behavior:             actor.NewBehavior(),
		stash:                &Stash{},
		healthProbeTimeout:   FetchTimeout(&config) + healthProbeMargin,
		logger:               ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:          &eventstream.EventStream{},
		controlActorProvider: controlActorProvider,
		mqttActorProvider:    mqttActorProvider,
		onSessionEnd:         onSessionEnd,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterActor) mqttEnabled() bool {
	return state.config.MQTT.Enable && state.mqttActorProvider != nil
}

func (state *MasterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start MQTT child first so it is subscribed before the first event
		if state.mqttEnabled() {
			mqttActorPID, err := state.startMQTTActor(ctx)
			if err != nil {
				panic(err)
			}
			state.mqttActor = mqttActorPID

			// start HA Discovery
			if state.config.MQTT.HADiscoveryEnable {
				_, err := state.startHADiscoveryActor(ctx)
				if err != nil {
					panic(err)
				}
			}
		}

		// start Control child
		controlActorPID, err := state.startControlActor(ctx)
		if err != nil {
			panic(err)
		}
		state.controlActor = controlActorPID

		state.behavior.Become(state.DefaultReceive)
		state.replayStash(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) DefaultReceive(ctx actor.Context) {
	state.handleDefault(ctx, ctx.Message(), ctx.Sender())
}

func (state *MasterActor) handleDefault(ctx actor.Context, message any, sender *actor.PID) {
	switch msg := message.(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = sender
		if msg.ReplyTo() != nil {
			state.currentHealthCheck.respondTo = (*actor.PID)(msg.ReplyTo())
		}
		state.currentHealthCheck.checksExpected = 1
		// Control Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.controlActor, domain.ActorHealthRequest{}, state.healthProbeTimeout), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_CONTROL,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		if state.mqttActor != nil {
			state.currentHealthCheck.checksExpected++
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, state.healthProbeTimeout), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      domain.ACTOR_ID_MQTT,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(state.healthProbeTimeout + healthProbeMargin)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	default:
		if !state.route(ctx, msg, sender) {
			state.logger.Debug("master@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
		}
	}
}

func (state *MasterActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.SetReceiveTimeout(0)
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.replayStash(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		switch msg.Id {
		case domain.ACTOR_ID_CONTROL:
			state.currentHealthCheck.controlActorHealthy = msg.Healthy
			state.currentHealthCheck.controlState = msg.State
		case domain.ACTOR_ID_MQTT:
			state.currentHealthCheck.mqttActorHealthy = msg.Healthy
		}
		if state.currentHealthCheck.allReceived() {
			ctx.SetReceiveTimeout(0)
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.replayStash(ctx)
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	default:
		// commands keep flowing while a health check is pending
		if !state.route(ctx, msg, ctx.Sender()) {
			state.logger.Debug("master@healthcheck recv", zap.String("type", fmt.Sprintf("%T", msg)))
		}
	}
}

// route forwards commands to the control actor and watches for the end of
// the session. It reports whether msg was handled.
func (state *MasterActor) route(ctx actor.Context, message any, sender *actor.PID) bool {
	switch msg := message.(type) {
	case domain.Command:
		state.logger.Debug("master: forward command", zap.String("command", msg.ControlCommand()))
		state.forward(ctx, msg, sender)
	case domain.GetStateRequest:
		state.forward(ctx, msg, sender)
	case adactor.ParsedCommand:
		// redirect parsedCommand to actor
		state.logger.Debug("master: parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			if cmd := ParsedMQTTCommandToCommand(*msg.Command); cmd != nil {
				ctx.Send(state.controlActor, cmd)
			}
		}
	case domain.SessionEnded:
		state.endSession(msg)
	case *actor.Terminated:
		switch {
		case state.stopping:
		case state.controlActor != nil && msg.Who.Id == state.controlActor.Id:
			state.logger.Error("master: control actor terminated")
			state.endSession(domain.SessionEnded{Kind: domain.ERROR_KIND_UNKNOWN, Error: ErrSessionFailed})
		case state.mqttActor != nil && msg.Who.Id == state.mqttActor.Id:
			state.logger.Warn("master: mqtt actor terminated, the display keeps running")
			state.mqttActor = nil
		}
	case *actor.Stopping:
		state.stopping = true
	default:
		return false
	}
	return true
}

func (state *MasterActor) forward(ctx actor.Context, msg any, sender *actor.PID) {
	if sender != nil {
		ctx.RequestWithCustomSender(state.controlActor, msg, sender)
	} else {
		ctx.Send(state.controlActor, msg)
	}
}

func (state *MasterActor) endSession(msg domain.SessionEnded) {
	if state.sessionEnded {
		return
	}
	state.sessionEnded = true
	state.logger.Error("master: session ended", zap.String("kind", string(msg.Kind)), zap.Error(msg.Error))
	if state.onSessionEnd != nil {
		state.onSessionEnd(msg)
	}
}

func (state *MasterActor) replayStash(ctx actor.Context) {
	state.stash.ReplayAll(func(msg any, sender *actor.PID) {
		state.handleDefault(ctx, msg, sender)
	})
}

func (state *MasterActor) startControlActor(ctx actor.Context) (*actor.PID, error) {

	// a crashed control loop is not restarted: the session is over
	decider := func(reason interface{}) actor.Directive {
		state.logger.Error("control actor failure", zap.Any("reason", reason))
		return actor.StopDirective
	}
	supervisor := actor.NewOneForOneStrategy(0, 10*time.Second, decider)

	controlProps := actor.PropsFromProducer(func() actor.Actor {
		return state.controlActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	controlActorPID, err := ctx.SpawnNamed(controlProps, domain.ACTOR_ID_CONTROL)
	if err != nil {
		return nil, err
	}

	return controlActorPID, nil
}

func (state *MasterActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Warn("ha discovery failure", zap.Any("reason", reason))
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, HADISCOVERY_ACTOR_ID)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *MasterActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *healthCheckResult) reset() {
	state.controlActorHealthy = false
	state.mqttActorHealthy = false
	state.controlState = ""
	state.checksExpected = 0
	state.checksReceived = 0
	state.respondTo = nil
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived >= state.checksExpected
}

func (state *healthCheckResult) allHealthy() bool {
	healthy := state.controlActorHealthy
	if state.checksExpected > 1 {
		healthy = healthy && state.mqttActorHealthy
	}
	return healthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
		State:   state.controlState,
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
